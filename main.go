package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.fiblab.net/sim/ptaccess/config"
	"git.fiblab.net/sim/ptaccess/storage"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
)

var (
	// 配置信息
	osmPath     = flag.String("osm", "", "input OpenStreetMap PBF file")
	configPath  = flag.String("config", "", "settings YAML file (empty means built-in settings)")
	outputPath  = flag.String("output", "", "output database [format: {fspath} or {db}.{col}], empty means no export")
	mongoURI    = flag.String("mongo_uri", "", "mongo db uri")
	logLevel    = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")
	pprofAddr   = flag.String("pprof", "", "pprof and metrics listening address, e.g. localhost:52102")
	exportLimit = flag.Duration("export-timeout", 5*time.Minute, "timeout of the export")

	// 性能测试
	benchmark = flag.Bool("benchmark", false, "benchmark mode")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}

	log = logrus.WithField("module", "ptaccess")
)

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	flag.Parse()
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}
	if *osmPath == "" {
		logrus.Fatalf("no input, use -osm")
	}

	settings := config.Default()
	if *configPath != "" {
		var err error
		if settings, err = config.Load(*configPath); err != nil {
			logrus.Fatalf("invalid settings: %v", err)
		}
	}
	output, err := storage.NewPath(*outputPath)
	if err != nil {
		logrus.Fatalf("invalid output path: %s", err)
	}

	if *pprofAddr != "" {
		// 启动pprof与metrics
		startHTTPDebugger(*pprofAddr)
	}

	// 优雅退出：第一次信号取消转换，第二次强制结束
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Info("stopping...")
		cancel()
		<-signalCh
		os.Exit(1)
	}()

	scan := pbfScanner(*osmPath)
	if *benchmark {
		runBenchmark(ctx, settings, scan)
		return
	}

	start := time.Now()
	conv, stats, err := run(ctx, settings, scan)
	if errors.Is(err, context.Canceled) {
		log.Warn("conversion cancelled")
		return
	}
	if err != nil {
		log.Fatalf("conversion failed: %v", err)
	}
	log.Infof("conversion done in %v: %+v", time.Since(start), stats)

	if output == nil {
		return
	}
	exportCtx, exportCancel := context.WithTimeout(ctx, *exportLimit)
	defer exportCancel()
	sink, err := storage.Open(exportCtx, output, *mongoURI)
	if err != nil {
		log.Fatalf("failed to open output %v: %v", output, err)
	}
	defer sink.Close(context.Background())
	export := storage.NewExport(conv.Zoning(), conv.DanglingZones(), settings.FlagDanglingZones)
	if err := sink.Write(exportCtx, export); err != nil {
		log.Fatalf("failed to write output %v: %v", output, err)
	}
	log.Infof("run %s exported to %v", export.RunID, output)
}
