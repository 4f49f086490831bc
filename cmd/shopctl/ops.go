package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"smartshop/internal/fsutil"
	"smartshop/internal/health"
	"smartshop/internal/kv"
)

// checker registers the components a session depends on.
func (a *app) checker() *health.Checker {
	c := health.NewChecker()
	c.RegisterFunc("store", true, health.StoreCheck(a.kv))
	if a.cfg.Storage.Type != kv.KindMemory {
		c.RegisterFunc("data_dir", true, health.WritableCheck(a.cfg.Storage.DataDir))
	}
	c.RegisterFunc("mirror", false, health.FailureCheck("mirror", func() uint64 {
		st := a.mirror.Stats()
		return st.PersistFailures + st.RemoveFailures + st.LoadFailures
	}))
	if a.db != nil {
		c.Register(&health.Component{
			Name:     "backend",
			Critical: true,
			Timeout:  a.cfg.BackendTimeout(),
			Check:    health.PingCheck("backend", a.db.Ready),
		})
	}
	return c
}

func cmdHealth(ctx context.Context, a *app, args []string) error {
	report := a.checker().Check(ctx)
	err := a.emit(report, func(w io.Writer) {
		fmt.Fprintf(w, "Overall: %s\n\n", report.Status)
		for _, name := range report.Names() {
			r := report.Components[name]
			fmt.Fprintf(w, "  %-10s %-10s %s", name, r.Status, r.Message)
			if r.Error != "" {
				fmt.Fprintf(w, " (%s)", r.Error)
			}
			fmt.Fprintf(w, " [%s]\n", r.Duration.Round(time.Microsecond))
		}
	})
	if err != nil {
		return err
	}
	if report.Status == health.StatusUnhealthy {
		return fmt.Errorf("session is %s", report.Status)
	}
	return nil
}

func cmdMetrics(ctx context.Context, a *app, args []string) error {
	fs := a.flags("metrics")
	outPath := fs.String("o", "", "write to `file` instead of stdout (for a textfile collector)")
	if err := parse(fs, args); err != nil {
		return err
	}

	a.stats.ObserveMirror(a.mirror.Stats())
	if l, ok := a.kv.(*kv.Log); ok {
		a.stats.ObserveLog(l.Stats())
	}

	var buf bytes.Buffer
	reg := a.stats.Registry()
	var err error
	if a.json {
		err = reg.WriteJSON(&buf)
	} else {
		err = reg.WritePrometheus(&buf)
	}
	if err != nil {
		return err
	}

	if *outPath == "" {
		_, err = a.out.Write(buf.Bytes())
		return err
	}
	if err := fsutil.WriteFile(*outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
