package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 访问/debug/pprof/进入pprof实时分析页面，/metrics为转换计数
func startHTTPDebugger(addr string) {
	debugHandler := http.NewServeMux()
	debugHandler.Handle("/debug/pprof/", http.HandlerFunc(pprof.Index))
	debugHandler.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))
	debugHandler.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: debugHandler}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("debug listener: %v", err)
		}
	}()
	log.Infof("debug listening at %s", addr)
}
