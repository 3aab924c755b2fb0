package rom

type observer struct {
	owner any
	fn    func()
}

// observers is a list of change listeners keyed by their owner. An owner
// can only be registered once, registering it again replaces its callback.
// Owners have to be comparable, usually they are pointers.
type observers struct {
	list []observer
}

func (o *observers) add(owner any, fn func()) {
	for i, obs := range o.list {
		if obs.owner == owner {
			o.list[i].fn = fn
			return
		}
	}
	o.list = append(o.list, observer{owner: owner, fn: fn})
}

func (o *observers) remove(owner any) {
	for i, obs := range o.list {
		if obs.owner == owner {
			o.list = append(o.list[:i], o.list[i+1:]...)
			return
		}
	}
}

func (o *observers) len() int {
	return len(o.list)
}

// notify calls all listeners. Listeners may add or remove observers while
// being notified, they will take effect for the next notification.
func (o *observers) notify() {
	list := make([]observer, len(o.list))
	copy(list, o.list)
	for _, obs := range list {
		obs.fn()
	}
}
