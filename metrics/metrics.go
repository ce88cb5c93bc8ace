// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics exposes a running board over HTTP: a Prometheus
// collector at /metrics, grounded on the witness applet's
// promhttp.Handler() wiring, and a JSON /debug/soc dump of AIC pending
// state, PDC channel counters and IOX client connection state per
// peripheral. Routes are mounted on a gorilla/mux router; the
// statsview-tagged build adds no route to it and instead starts its own
// dashboard server from mountStatsview.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/us-irs/qemu-iobc/pdc"
	"github.com/us-irs/qemu-iobc/soc"
)

// Server is the board's debug/metrics HTTP endpoint. It owns no state of
// its own beyond the listener: every value it reports is read live off
// the *soc.SoC at request time.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the router (/metrics, /debug/soc, and /debug/pprof/*
// via net/http/pprof's init-time registration) and binds it to addr. The
// server does not start listening until Run is called.
func NewServer(addr string, s *soc.SoC) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		&socCollector{soc: s},
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.HandleFunc("/debug/soc", debugSoCHandler(s))
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	mountStatsview()

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: r,
		},
	}
}

// Run blocks serving HTTP until ctx is cancelled, then shuts the server
// down. Mirrors SoC.Run's ctx-driven lifecycle so cmd/qemu-iobc can start
// both with the same pattern.
func (srv *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

type pdcChannel struct {
	RPR uint32 `json:"rpr"`
	RCR uint16 `json:"rcr"`
	TPR uint32 `json:"tpr"`
	TCR uint16 `json:"tcr"`
}

func pdcOf(c *pdc.Controller) pdcChannel {
	return pdcChannel{RPR: c.RPR(), RCR: c.RCR(), TPR: c.TPR(), TCR: c.TCR()}
}

type ioxSocket struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

type socDump struct {
	AIC struct {
		IPR uint32 `json:"ipr"`
		IMR uint32 `json:"imr"`
	} `json:"aic"`
	PDC map[string]pdcChannel `json:"pdc"`
	IOX []ioxSocket           `json:"iox"`
}

// debugSoCHandler dumps AIC pending state, every PDC-owning peripheral's
// channel counters, and IOX client connection state per socket.
func debugSoCHandler(s *soc.SoC) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dump socDump
		dump.AIC.IPR = s.AIC.IPR()
		dump.AIC.IMR = s.AIC.IMR()

		dump.PDC = map[string]pdcChannel{
			"twi": pdcOf(s.TWI.PDC()),
			"mci": pdcOf(s.MCI.PDC()),
		}
		for i, u := range s.USART {
			dump.PDC[usartName(i)] = pdcOf(u.PDC())
		}
		for i, sp := range s.SPI {
			dump.PDC[spiName(i)] = pdcOf(sp.PDC())
		}

		for _, srv := range s.IOXServers() {
			dump.IOX = append(dump.IOX, ioxSocket{Name: srv.Name(), Connected: srv.Connected()})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dump)
	}
}

func usartName(i int) string { return "usart" + strconv.Itoa(i) }
func spiName(i int) string   { return "spi" + strconv.Itoa(i) }
