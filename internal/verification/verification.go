// Package verification verifies that reassembling a document recreates the input.
package verification

import (
	"context"
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/rom"
	"github.com/retroenv/romschema/internal/schema"
)

const maxReportedMismatches = 10

// VerifyOutput builds a fresh document from the input, marks every node as
// modified and checks that assembling it reproduces the input exactly.
func VerifyOutput(ctx context.Context, logger *log.Logger, def *schema.Definition, input []byte, opts rom.Options) error {
	doc, err := rom.New(def, input, opts)
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}

	var nodes int
	rom.Walk(doc, func(n rom.Node, _ int) bool {
		if ctx.Err() != nil {
			return false
		}
		nodes++
		n.MarkDirty()
		return true
	})
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("marking nodes: %w", err)
	}
	logger.Debug("Reassembling document", log.Int("nodes", nodes))

	output := doc.Assemble()
	if err := checkBufferEqual(logger, input, output); err != nil {
		return fmt.Errorf("reassembled data mismatch: %w", err)
	}
	return nil
}

func checkBufferEqual(logger *log.Logger, input, output []byte) error {
	if len(input) != len(output) {
		return fmt.Errorf("mismatched lengths, %d != %d", len(input), len(output))
	}

	var diffs uint64
	for i := range input {
		if input[i] == output[i] {
			continue
		}

		diffs++
		if diffs <= maxReportedMismatches {
			logger.Error("Offset mismatch",
				log.Hex("offset", i),
				log.Hex("expected", input[i]),
				log.Hex("got", output[i]))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%d offset mismatches", diffs)
}
