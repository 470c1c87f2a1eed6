package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"syncboard/internal/config"
	"syncboard/internal/discovery"
	"syncboard/internal/logger"
	"syncboard/internal/netutil"
	"syncboard/internal/server"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	configVar := flag.String("config", "", "path to a yaml config file")
	addrVar := flag.String("addr", "", "listen address override")
	flag.Parse()

	cfg, err := config.Load(*configVar)
	if err != nil {
		return err
	}
	if *addrVar != "" {
		cfg.Server.Addr = *addrVar
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	hub := server.NewHub(log)
	hub.SetSendBuffer(cfg.Server.SendBuffer)

	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			log.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})
	hub.Routes(r)

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	if cfg.Server.MDNS {
		mdnsServer, err := discovery.Advertise(port)
		if err != nil {
			log.Warn("mDNS advertisement unavailable", "err", err)
		} else {
			defer mdnsServer.Shutdown()
		}
	}

	if ip, err := netutil.OutgoingIP(); err == nil {
		log.Info("share link", "addr", "ws://"+net.JoinHostPort(ip, strconv.Itoa(port))+"/ws")
	}

	httpServer := &http.Server{Handler: r}
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("server listening", "addr", listener.Addr().String())

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		log.Info("signal caught", "sig", sig.String())
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
