package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/leftmike/mahoundo/internal/rowcodec"
	"github.com/leftmike/mahoundo/internal/scratch"
	"github.com/leftmike/mahoundo/internal/session"
	isql "github.com/leftmike/mahoundo/internal/sql"
	"github.com/leftmike/mahoundo/internal/undo"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted append/pop sequence against a real scratch file",
	RunE:  demoRun,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func demoTable() isql.TableName {
	return isql.TableName{Database: isql.ID("demo"), Schema: isql.ID("public"), Table: isql.ID("accounts")}
}

// demoRun reproduces the first-spill / rehydration-on-pop scenario end to
// end against the local filesystem, logging the first spill and every
// rehydration at info level the way the server would log transaction
// milestones.
func demoRun(cmd *cobra.Command, args []string) error {
	ses := session.New("demo", isql.ID("demo"),
		session.WithMaxMemoryUndo(settings.MaxMemoryUndo),
		session.WithPersistent(settings.Persistent),
		session.WithDefaultPageSize(settings.DefaultPageSize))
	alloc := scratch.DefaultAllocator{Dir: settings.ScratchDir}
	ulog := undo.New(ses, rowcodec.Default{}, alloc)

	table := demoTable()
	n := settings.MaxMemoryUndo + 2
	log.WithField("max-memory-undo", settings.MaxMemoryUndo).Infof("appending %d records", n)

	for i := 0; i < n; i++ {
		hadFile := ulog.HasScratchFile()
		rec := undo.NewRecord(rowcodec.Insert, table,
			[]isql.Value{isql.Int64Value(int64(i)), isql.StringValue(fmt.Sprintf("row-%d", i))})
		if err := ulog.Append(rec); err != nil {
			return fmt.Errorf("mahoundo: append: %s", err)
		}
		if !hadFile && ulog.HasScratchFile() {
			log.WithField("resident", ulog.ResidentCount()).Info("first spill triggered")
		}
	}

	log.WithField("size", ulog.Size()).WithField("resident", ulog.ResidentCount()).
		Info("append phase complete")

	for ulog.Size() > 0 {
		before := ulog.ResidentCount()
		rec, err := ulog.PopLast()
		if err != nil {
			return fmt.Errorf("mahoundo: pop: %s", err)
		}
		after := ulog.ResidentCount()
		if after >= before {
			log.WithField("rehydrated", after-before+1).Info("rehydration window restored")
		}
		fmt.Println(isql.Format(rec.Row()))
	}

	log.Info("demo complete")
	return nil
}
