// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/us-irs/qemu-iobc/pdc"
	"github.com/us-irs/qemu-iobc/soc"
)

// socCollector implements prometheus.Collector by reading the board's
// live state on every scrape rather than caching counters of its own —
// the same "dump what's there" approach debugSoCHandler takes for the
// JSON surface, just reshaped into Prometheus's pull model.
type socCollector struct {
	soc *soc.SoC
}

var (
	aicIPRDesc = prometheus.NewDesc("iobc_aic_ipr", "AIC interrupt pending register", nil, nil)
	aicIMRDesc = prometheus.NewDesc("iobc_aic_imr", "AIC interrupt mask register", nil, nil)

	pdcRCRDesc = prometheus.NewDesc("iobc_pdc_rcr", "PDC receive counter register", []string{"peripheral"}, nil)
	pdcTCRDesc = prometheus.NewDesc("iobc_pdc_tcr", "PDC transmit counter register", []string{"peripheral"}, nil)

	ioxConnectedDesc = prometheus.NewDesc("iobc_iox_connected", "1 if a client is connected to this IOX socket", []string{"socket"}, nil)
)

func (c *socCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- aicIPRDesc
	ch <- aicIMRDesc
	ch <- pdcRCRDesc
	ch <- pdcTCRDesc
	ch <- ioxConnectedDesc
}

func (c *socCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(aicIPRDesc, prometheus.GaugeValue, float64(c.soc.AIC.IPR()))
	ch <- prometheus.MustNewConstMetric(aicIMRDesc, prometheus.GaugeValue, float64(c.soc.AIC.IMR()))

	c.collectPDC(ch, "twi", c.soc.TWI.PDC())
	c.collectPDC(ch, "mci", c.soc.MCI.PDC())
	for i, u := range c.soc.USART {
		c.collectPDC(ch, usartName(i), u.PDC())
	}
	for i, s := range c.soc.SPI {
		c.collectPDC(ch, spiName(i), s.PDC())
	}

	for _, srv := range c.soc.IOXServers() {
		v := 0.0
		if srv.Connected() {
			v = 1.0
		}
		ch <- prometheus.MustNewConstMetric(ioxConnectedDesc, prometheus.GaugeValue, v, srv.Name())
	}
}

func (c *socCollector) collectPDC(ch chan<- prometheus.Metric, name string, p *pdc.Controller) {
	ch <- prometheus.MustNewConstMetric(pdcRCRDesc, prometheus.GaugeValue, float64(p.RCR()), name)
	ch <- prometheus.MustNewConstMetric(pdcTCRDesc, prometheus.GaugeValue, float64(p.TCR()), name)
}
