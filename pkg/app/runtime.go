package app

import (
	"expvar"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/collateral-server/pkg/osutil"
)

const maxBallastCapacity = 0.5

// startDebugServer serves expvar and pprof on their own listener. The
// default mux is replaced first so neither leaks onto the API listener.
func startDebugServer(log *logrus.Entry, config BaseConfig) {
	http.DefaultServeMux = http.NewServeMux()

	if !config.EnableExpvar && !config.EnablePprof {
		return
	}

	mux := http.NewServeMux()
	if config.EnableExpvar {
		mux.Handle("/debug/vars", expvar.Handler())
	}
	if config.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	go func() {
		for {
			if err := http.ListenAndServe(config.DebugListenAddress, mux); err != nil {
				log.WithError(err).Warn("debug http server failed, retrying in 5s")
			}
			time.Sleep(5 * time.Second)
		}
	}()
}

// allocateBallast reserves a share of total memory, capped at half, to
// raise the GC target.
//
// https://blog.twitch.tv/en/2019/04/10/go-memory-ballast-how-i-learnt-to-stop-worrying-and-love-the-heap/
func allocateBallast(config BaseConfig) []byte {
	if !config.EnableBallast {
		return nil
	}

	capacity := min(config.BallastCapacity, maxBallastCapacity)
	return make([]byte, uint64(capacity*float32(osutil.GetTotalMemory())))
}

// keepAlive touches the ballast so it stays reachable until Run returns.
func keepAlive(ballast []byte) {
	if len(ballast) > 0 {
		ballast[0] = 1
	}
}

// scheduleRestarts returns a channel closed on the configured cron schedule,
// letting the orchestrator replace a process that leaks memory.
func scheduleRestarts(config BaseConfig) (<-chan struct{}, func(), error) {
	restartCh := make(chan struct{})
	if !config.EnableMemoryLeakCron {
		return restartCh, func() {}, nil
	}

	scheduler := cron.New(cron.WithLocation(time.Local))

	var once sync.Once
	_, err := scheduler.AddFunc(config.MemoryLeakCronSchedule, func() {
		once.Do(func() { close(restartCh) })
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize memory leak cron")
	}

	scheduler.Start()
	return restartCh, func() { scheduler.Stop() }, nil
}
