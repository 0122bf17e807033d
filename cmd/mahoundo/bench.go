package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/leftmike/mahoundo/internal/rowcodec"
	"github.com/leftmike/mahoundo/internal/scratch"
	"github.com/leftmike/mahoundo/internal/session"
	isql "github.com/leftmike/mahoundo/internal/sql"
	"github.com/leftmike/mahoundo/internal/undo"
)

var (
	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Repeatedly append/pop rows and report spill and rehydration counts",
		RunE:  benchRun,
	}

	benchBatches  = 4
	benchRows     = 256
	benchRowBytes = 64
	benchInteract = false
)

func init() {
	fs := benchCmd.Flags()
	fs.IntVar(&benchBatches, "batches", benchBatches, "number of append/pop batches to run")
	fs.IntVar(&benchRows, "rows", benchRows, "rows appended and popped per batch")
	fs.IntVar(&benchRowBytes, "row-bytes", benchRowBytes, "approximate size of each row's string column")
	fs.BoolVarP(&benchInteract, "interact", "i", benchInteract,
		"prompt between batches instead of running them back to back")
	rootCmd.AddCommand(benchCmd)
}

type batchResult struct {
	batch      int
	spills     int
	rehydrates int
}

func benchTable() isql.TableName {
	return isql.TableName{Database: isql.ID("bench"), Schema: isql.ID("public"), Table: isql.ID("rows")}
}

func runBatch(n int, log *undo.Log, rowBytes int) batchResult {
	table := benchTable()
	padding := make([]byte, rowBytes)
	for i := range padding {
		padding[i] = 'x'
	}

	res := batchResult{batch: n}
	records := make([]*undo.Record, 0, benchRows)
	for i := 0; i < benchRows; i++ {
		before := log.ResidentCount()
		rec := undo.NewRecord(rowcodec.Insert, table,
			[]isql.Value{isql.Int64Value(int64(i)), isql.BytesValue(padding)})
		log.Append(rec)
		// Append adds one resident record; any shortfall was spilled.
		res.spills += before + 1 - log.ResidentCount()
		records = append(records, rec)
	}

	for range records {
		before := log.ResidentCount()
		log.PopLast()
		after := log.ResidentCount()
		if after >= before {
			res.rehydrates++
		}
	}
	return res
}

func benchRun(cmd *cobra.Command, args []string) error {
	ses := session.New("bench", isql.ID("bench"),
		session.WithMaxMemoryUndo(settings.MaxMemoryUndo),
		session.WithPersistent(settings.Persistent),
		session.WithDefaultPageSize(settings.DefaultPageSize))
	alloc := scratch.DefaultAllocator{Dir: settings.ScratchDir}

	var line *liner.State
	if benchInteract {
		line = liner.NewLiner()
		defer line.Close()
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"batch", "spills", "rehydrates"})

	for b := 1; b <= benchBatches; b++ {
		log := undo.New(ses, rowcodec.Default{}, alloc)
		res := runBatch(b, log, benchRowBytes)
		tw.Append([]string{
			fmt.Sprintf("%d", res.batch),
			fmt.Sprintf("%d", res.spills),
			fmt.Sprintf("%d", res.rehydrates),
		})

		if benchInteract && b < benchBatches {
			if _, err := line.Prompt("press enter for next batch> "); err != nil {
				break
			}
		}
	}

	tw.Render()
	return nil
}
