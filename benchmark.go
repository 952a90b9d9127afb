package main

import (
	"context"
	"flag"
	"time"

	"git.fiblab.net/sim/ptaccess/config"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var (
	benchmarkCount = flag.Int("benchmark.count", 3, "the conversion count for benchmark")
)

// runBenchmark repeats the whole conversion and reports the run times.
func runBenchmark(ctx context.Context, settings config.Settings, scan scanFunc) {
	log.Logger.SetLevel(logrus.WarnLevel)
	durations := make([]time.Duration, 0, *benchmarkCount)
	for i := 0; i < *benchmarkCount; i++ {
		start := time.Now()
		if _, _, err := run(ctx, settings, scan); err != nil {
			log.Fatalf("benchmark run %d: %v", i, err)
		}
		durations = append(durations, time.Since(start))
	}
	log.Logger.SetLevel(logrus.InfoLevel)
	if len(durations) == 0 {
		return
	}
	total := lo.Sum(durations)
	log.Infof("benchmark: %d runs, total %v, mean %v, min %v, max %v",
		len(durations), total, total/time.Duration(len(durations)), lo.Min(durations), lo.Max(durations))
}
