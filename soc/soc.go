// SPDX-License-Identifier: GPL-2.0-or-later

// Package soc assembles every peripheral package into the iOBC board
// model, grounded on iobc-soc.c's iobc_soc_init/iobc_soc_realize: fixed
// address map, AIC/SysCOR line assignments, and the PMC clock fanout, all
// reproduced address-for-address and line-for-line. It plays an
// aggregate-owner role across roughly forty peripheral instances, the way
// a VCS-style top-level struct owns its sub-components.
package soc

import (
	"net"
	"os"

	"github.com/us-irs/qemu-iobc/aic"
	"github.com/us-irs/qemu-iobc/config"
	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/dbgu"
	"github.com/us-irs/qemu-iobc/iox"
	"github.com/us-irs/qemu-iobc/logger"
	"github.com/us-irs/qemu-iobc/matrix"
	"github.com/us-irs/qemu-iobc/mci"
	"github.com/us-irs/qemu-iobc/mci/sdbus"
	"github.com/us-irs/qemu-iobc/mmio"
	"github.com/us-irs/qemu-iobc/pio"
	"github.com/us-irs/qemu-iobc/pit"
	"github.com/us-irs/qemu-iobc/pmc"
	"github.com/us-irs/qemu-iobc/rstc"
	"github.com/us-irs/qemu-iobc/rtt"
	"github.com/us-irs/qemu-iobc/sdramc"
	"github.com/us-irs/qemu-iobc/spi"
	"github.com/us-irs/qemu-iobc/tc"
	"github.com/us-irs/qemu-iobc/twi"
	"github.com/us-irs/qemu-iobc/usart"
)

// bms is AT91_BMS_INIT on the iOBC: false, so with REMAP=0 the boot window
// aliases EBI_NCS0 (the NOR flash) rather than internal ROM.
const bms = false

// Memory map constants, address-for-address from iobc_soc_realize.
const (
	addrBootmem = 0x00000000
	sizeBootmem = 0x00100000

	addrROM    = 0x00100000
	sizeROM    = 0x8000
	addrSRAM0  = 0x00200000
	sizeSRAM0  = 0x4000
	addrSRAM1  = 0x00300000
	sizeSRAM1  = 0x4000
	addrPFlash = 0x10000000
	sizePFlash = 0x10000000
	addrSDRAM  = 0x20000000
	sizeSDRAM  = 0x10000000

	addrAIC    = 0xfffff000
	sizeAIC    = 0x200
	addrMatrix = 0xffffee00
	sizeMatrix = 0x200
	addrDBGU   = 0xfffff200
	sizeDBGU   = 0x200
	addrPIOA   = 0xfffff400
	addrPIOB   = 0xfffff600
	addrPIOC   = 0xfffff800
	sizePIO    = 0x200
	addrPMC    = 0xfffffc00
	sizePMC    = 0x100
	addrTWI    = 0xfffac000
	sizeTWI    = 0x4000
	addrUSART0 = 0xfffb0000
	addrUSART1 = 0xfffb4000
	addrUSART2 = 0xfffb8000
	addrUSART3 = 0xfffd0000
	addrUSART4 = 0xfffd4000
	addrUSART5 = 0xfffd8000
	sizeUSART  = 0x4000
	addrSPI0   = 0xfffc8000
	addrSPI1   = 0xfffcc000
	sizeSPI    = 0x4000
	addrSDRAMC = 0xffffea00
	sizeSDRAMC = 0x200
	addrMCI    = 0xfffa8000
	sizeMCI    = 0x4000
	addrTC012  = 0xfffa0000
	addrTC345  = 0xfffdc000
	sizeTC     = 0x4000
	addrRSTC   = 0xfffffd00
	addrRTT    = 0xfffffd20
	addrPIT    = 0xfffffd30
	sizeMisc   = 0x10

	mciPIOBSelectPin = 7
)

// AIC line assignments, per iobc_soc_realize's sysbus_connect_irq calls.
// Line 1 (SYSC) is wired internally by aic.NewSysCOR, not listed here.
const (
	linePIOA   = 2
	linePIOB   = 3
	linePIOC   = 4
	lineUSART0 = 6
	lineUSART1 = 7
	lineUSART2 = 8
	lineMCI    = 9
	lineTWI    = 11
	lineSPI0   = 12
	lineSPI1   = 13
	lineTC012a = 17
	lineTC012b = 18
	lineTC012c = 19
	lineUSART3 = 23
	lineUSART4 = 24
	lineUSART5 = 25
	lineTC345a = 26
	lineTC345b = 27
	lineTC345c = 28
)

// SysCOR input assignments, per the same function's wiring of irq_sysc.
const (
	syscPMC    = 0
	syscDBGU   = 1
	syscSDRAMC = 2
	syscRSTC   = 3
	syscRTT    = 4
	syscPIT    = 5
)

// SoC is the assembled iOBC board: every peripheral constructed once,
// wired to its neighbours through explicit callbacks, and reachable by
// name for the debug console and metrics surfaces. The ARM core itself is
// out of scope (§1): AIC.SetIRQ/SetFIQ are left as plain exported fields
// an external CPU collaborator can still hook, defaulting to a logging
// no-op here.
type SoC struct {
	cfg config.Board

	Fabric  *mmio.Fabric
	Bootmem *mmio.Bootmem

	ROM, SRAM0, SRAM1, PFlash, SDRAM *mmio.Memory

	AIC    *aic.Controller
	SysCOR *aic.SysCOR
	PMC    *pmc.Controller
	Matrix *matrix.Controller
	DBGU   *dbgu.Controller

	PIOA, PIOB, PIOC *pio.Controller
	TWI              *twi.Controller
	USART            [6]*usart.Controller
	SPI              [2]*spi.Controller
	SDRAMC           *sdramc.Controller
	MCI              *mci.Controller
	TC012, TC345     *tc.Block
	RSTC             *rstc.Controller
	RTT              *rtt.Controller
	PIT              *pit.Controller

	ioxServers []*iox.Server
	dbguSerial *os.File
}

// IOXServers returns every IOX socket this board opened, for diagnostics
// that enumerate socket names and client-connection state. The slice is
// shared with the SoC itself; callers must not mutate it.
func (s *SoC) IOXServers() []*iox.Server {
	return s.ioxServers
}

// fabricBus breaks the construction cycle between the fabric (which needs
// every peripheral's Device built first) and the PDC-owning peripherals
// (which need a MemoryBus at construction time): peripherals hold a
// pointer to this indirection instead of the fabric itself, and New binds
// the real *mmio.Fabric into it once the fabric exists.
type fabricBus struct {
	fabric *mmio.Fabric
}

func (b *fabricBus) ReadBytes(addr uint32, n int) ([]byte, error) { return b.fabric.ReadBytes(addr, n) }
func (b *fabricBus) WriteBytes(addr uint32, data []byte) error    { return b.fabric.WriteBytes(addr, data) }

// New constructs every peripheral named in iobc_soc_init, wires every IRQ
// line and clock listener named in iobc_soc_realize, opens the board's
// configured IOX sockets, and assembles the resulting mmio.Fabric.
func New(cfg config.Board) (*SoC, error) {
	s := &SoC{cfg: cfg}
	bus := &fabricBus{}

	if err := s.buildMemory(cfg); err != nil {
		return nil, err
	}

	s.AIC = aic.New()
	s.AIC.SetIRQ = func(level bool) { logger.Logf(logger.Allow, "cpu", "IRQ line %v", level) }
	s.AIC.SetFIQ = func(level bool) { logger.Logf(logger.Allow, "cpu", "FIQ line %v", level) }
	s.SysCOR = aic.NewSysCOR(s.AIC)

	s.PMC = pmc.New("pmc")
	// PMC's IRQ output feeds SysCOR input 0 per the address map, but the
	// original device never implements an interrupt source (no
	// sysbus_init_irq in at91-pmc.c) — there is nothing to wire.

	s.Matrix = matrix.New("matrix", bms)
	s.Matrix.SetBootmem = func(target matrix.BootmemTarget) {
		switch target {
		case matrix.TargetROM:
			s.Bootmem.SetAlias(mmio.AliasROM)
		case matrix.TargetSRAM0:
			s.Bootmem.SetAlias(mmio.AliasSRAM0)
		case matrix.TargetEBINCS0:
			s.Bootmem.SetAlias(mmio.AliasEBI_NCS0)
		}
	}
	s.Matrix.UpdateBootmem()

	if err := s.buildDBGU(cfg); err != nil {
		return nil, err
	}
	s.DBGU.SetIRQ = func(level bool) { s.SysCOR.SetLine(syscDBGU, level) }

	s.PIOA = pio.New("pioa")
	s.PIOB = pio.New("piob")
	s.PIOC = pio.New("pioc")
	s.PIOA.SetIRQ = func(level bool) { s.AIC.SetLine(linePIOA, level) }
	s.PIOB.SetIRQ = func(level bool) { s.AIC.SetLine(linePIOB, level) }
	s.PIOC.SetIRQ = func(level bool) { s.AIC.SetLine(linePIOC, level) }

	s.TWI = twi.New("twi", bus)
	s.TWI.SetIRQ = func(level bool) { s.AIC.SetLine(lineTWI, level) }

	usartLines := [6]int{lineUSART0, lineUSART1, lineUSART2, lineUSART3, lineUSART4, lineUSART5}
	usartNames := [6]string{"usart0", "usart1", "usart2", "usart3", "usart4", "usart5"}
	for i := range s.USART {
		u := usart.New(usartNames[i], bus)
		line := usartLines[i]
		u.SetIRQ = func(level bool) { s.AIC.SetLine(line, level) }
		s.USART[i] = u
	}

	spiLines := [2]int{lineSPI0, lineSPI1}
	spiNames := [2]string{"spi0", "spi1"}
	for i := range s.SPI {
		p := spi.New(spiNames[i], bus)
		line := spiLines[i]
		p.SetIRQ = func(level bool) { s.AIC.SetLine(line, level) }
		s.SPI[i] = p
	}

	s.SDRAMC = sdramc.New("sdramc")
	s.SDRAMC.SetIRQ = func(level bool) { s.SysCOR.SetLine(syscSDRAMC, level) }

	if err := s.buildMCI(cfg, bus); err != nil {
		return nil, err
	}
	s.MCI.SetIRQ = func(level bool) { s.AIC.SetLine(lineMCI, level) }
	s.PIOB.PinOut[mciPIOBSelectPin] = s.MCI.SelectCard

	s.TC012 = tc.New("tc012")
	s.TC012.Channel(0).SetIRQ = func(level bool) { s.AIC.SetLine(lineTC012a, level) }
	s.TC012.Channel(1).SetIRQ = func(level bool) { s.AIC.SetLine(lineTC012b, level) }
	s.TC012.Channel(2).SetIRQ = func(level bool) { s.AIC.SetLine(lineTC012c, level) }

	s.TC345 = tc.New("tc345")
	s.TC345.Channel(0).SetIRQ = func(level bool) { s.AIC.SetLine(lineTC345a, level) }
	s.TC345.Channel(1).SetIRQ = func(level bool) { s.AIC.SetLine(lineTC345b, level) }
	s.TC345.Channel(2).SetIRQ = func(level bool) { s.AIC.SetLine(lineTC345c, level) }

	s.RSTC = rstc.New("rstc")
	s.RSTC.SetIRQ = func(level bool) { s.SysCOR.SetLine(syscRSTC, level) }

	s.RTT = rtt.New("rtt")
	s.RTT.SetIRQ = func(level bool) { s.SysCOR.SetLine(syscRTT, level) }

	s.PIT = pit.New("pit")
	s.PIT.SetIRQ = func(level bool) { s.SysCOR.SetLine(syscPIT, level) }

	// PMC's clock fanout, per iobc_soc_set_master_clock.
	s.PMC.AddClockListener(s.PIT)
	s.PMC.AddClockListener(s.TWI)
	for _, u := range s.USART {
		s.PMC.AddClockListener(u)
	}
	// SPI carries no master-clock modelling (see spi package doc comment:
	// the original at91-spi.c is a bare abort() stub, so this port has no
	// baud-rate derivation to feed) — nothing to register here.
	s.PMC.AddClockListener(s.MCI)
	s.PMC.AddClockListener(s.TC012)
	s.PMC.AddClockListener(s.TC345)

	if err := s.buildIOXServers(cfg); err != nil {
		s.Close()
		return nil, err
	}

	fabric, err := s.buildFabric()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Fabric = fabric
	bus.fabric = fabric

	return s, nil
}

func (s *SoC) buildMemory(cfg config.Board) error {
	s.ROM = mmio.NewMemory("rom", sizeROM, true)
	s.SRAM0 = mmio.NewMemory("sram0", sizeSRAM0, false)
	s.SRAM1 = mmio.NewMemory("sram1", sizeSRAM1, false)
	s.SDRAM = mmio.NewMemory("sdram", sizeSDRAM, false)

	if cfg.BIOS != "" {
		image, err := os.ReadFile(cfg.BIOS)
		if err != nil {
			return curated.Errorf("soc: reading BIOS image %q: %v", cfg.BIOS, err)
		}
		s.PFlash = mmio.NewMemoryFromImage("pflash", image, sizePFlash, false)
	} else {
		s.PFlash = mmio.NewMemory("pflash", sizePFlash, false)
	}

	s.Bootmem = mmio.NewBootmem(s.ROM, s.SRAM0, s.PFlash, mmio.AliasEBI_NCS0)
	return nil
}

func (s *SoC) buildDBGU(cfg config.Board) error {
	var out *os.File = os.Stdout
	var in *os.File = os.Stdin
	if cfg.DBGUSerial != "" {
		f, err := os.OpenFile(cfg.DBGUSerial, os.O_RDWR, 0)
		if err != nil {
			return curated.Errorf("soc: opening DBGU serial redirect %q: %v", cfg.DBGUSerial, err)
		}
		out, in = f, f
		s.dbguSerial = f
	}

	s.DBGU = dbgu.New("dbgu", out)
	if err := s.DBGU.AttachStdin(in); err != nil {
		logger.Logf(logger.Allow, "dbgu", "stdin not attached: %v", err)
	}
	return nil
}

func (s *SoC) buildMCI(cfg config.Board, bus mci.MemoryBus) error {
	var card sdbus.Card
	if slot := cfg.SD[0]; slot.Image != "" {
		raw, err := sdbus.NewRawCard(slot.Image, 0)
		if err != nil {
			return curated.Errorf("soc: opening SD card image %q: %v", slot.Image, err)
		}
		card = raw
	}
	s.MCI = mci.New("mci", bus, card)
	return nil
}

// buildIOXServer opens path (if non-blank) as a Unix domain socket and
// starts an iox.Server over it; a blank path leaves the peripheral's
// socket unopened, per config.IOXSockets' documented convention. A stale
// socket file from a prior crashed run is removed first since net.Listen
// refuses to bind over one.
func (s *SoC) buildIOXServer(name, path string, handler iox.Handler) (*iox.Server, error) {
	if path == "" {
		return nil, nil
	}
	os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, curated.Errorf("soc: %s: opening IOX socket %q: %v", name, path, err)
	}
	srv := iox.New(name, l, handler)
	s.ioxServers = append(s.ioxServers, srv)
	return srv, nil
}

func (s *SoC) buildIOXServers(cfg config.Board) error {
	type attachment struct {
		name    string
		path    string
		handler iox.Handler
		attach  func(*iox.Server)
	}

	attachments := []attachment{
		{"twi", cfg.Sockets.TWI, s.TWI.HandleFrame, s.TWI.AttachServer},
		{"pioa", cfg.Sockets.PIOA, s.PIOA.HandleFrame, s.PIOA.AttachServer},
		{"piob", cfg.Sockets.PIOB, s.PIOB.HandleFrame, s.PIOB.AttachServer},
		{"pioc", cfg.Sockets.PIOC, s.PIOC.HandleFrame, s.PIOC.AttachServer},
		{"sdramc", cfg.Sockets.SDRAMC, s.SDRAMC.HandleFrame, s.SDRAMC.AttachServer},
	}
	for i := range s.USART {
		attachments = append(attachments, attachment{
			name: "usart" + string(rune('0'+i)), path: cfg.Sockets.USART[i],
			handler: s.USART[i].HandleFrame, attach: s.USART[i].AttachServer,
		})
	}
	for i := range s.SPI {
		attachments = append(attachments, attachment{
			name: "spi" + string(rune('0'+i)), path: cfg.Sockets.SPI[i],
			handler: s.SPI[i].HandleFrame, attach: s.SPI[i].AttachServer,
		})
	}

	for _, a := range attachments {
		srv, err := s.buildIOXServer(a.name, a.path, a.handler)
		if err != nil {
			return err
		}
		if srv != nil {
			a.attach(srv)
		}
	}
	return nil
}

func (s *SoC) buildFabric() (*mmio.Fabric, error) {
	policy := s.cfg.Policy.Unimplemented

	regions := []mmio.Region{
		{Name: "bootmem", Base: addrBootmem, Size: sizeBootmem, Device: s.Bootmem},
		{Name: "rom", Base: addrROM, Size: sizeROM, Device: s.ROM},
		{Name: "sram0", Base: addrSRAM0, Size: sizeSRAM0, Device: s.SRAM0},
		{Name: "sram1", Base: addrSRAM1, Size: sizeSRAM1, Device: s.SRAM1},
		{Name: "pflash", Base: addrPFlash, Size: sizePFlash, Device: s.PFlash},
		{Name: "sdram", Base: addrSDRAM, Size: sizeSDRAM, Device: s.SDRAM},

		{Name: "aic", Base: addrAIC, Size: sizeAIC, Device: s.AIC},
		{Name: "matrix", Base: addrMatrix, Size: sizeMatrix, Device: s.Matrix},
		{Name: "dbgu", Base: addrDBGU, Size: sizeDBGU, Device: s.DBGU},
		{Name: "pioa", Base: addrPIOA, Size: sizePIO, Device: s.PIOA},
		{Name: "piob", Base: addrPIOB, Size: sizePIO, Device: s.PIOB},
		{Name: "pioc", Base: addrPIOC, Size: sizePIO, Device: s.PIOC},
		{Name: "pmc", Base: addrPMC, Size: sizePMC, Device: s.PMC},
		{Name: "twi", Base: addrTWI, Size: sizeTWI, Device: s.TWI},
		{Name: "usart0", Base: addrUSART0, Size: sizeUSART, Device: s.USART[0]},
		{Name: "usart1", Base: addrUSART1, Size: sizeUSART, Device: s.USART[1]},
		{Name: "usart2", Base: addrUSART2, Size: sizeUSART, Device: s.USART[2]},
		{Name: "usart3", Base: addrUSART3, Size: sizeUSART, Device: s.USART[3]},
		{Name: "usart4", Base: addrUSART4, Size: sizeUSART, Device: s.USART[4]},
		{Name: "usart5", Base: addrUSART5, Size: sizeUSART, Device: s.USART[5]},
		{Name: "spi0", Base: addrSPI0, Size: sizeSPI, Device: s.SPI[0]},
		{Name: "spi1", Base: addrSPI1, Size: sizeSPI, Device: s.SPI[1]},
		{Name: "sdramc", Base: addrSDRAMC, Size: sizeSDRAMC, Device: s.SDRAMC},
		{Name: "mci", Base: addrMCI, Size: sizeMCI, Device: s.MCI},
		{Name: "tc012", Base: addrTC012, Size: sizeTC, Device: s.TC012},
		{Name: "tc345", Base: addrTC345, Size: sizeTC, Device: s.TC345},
		{Name: "rstc", Base: addrRSTC, Size: sizeMisc, Device: s.RSTC},
		{Name: "rtt", Base: addrRTT, Size: sizeMisc, Device: s.RTT},
		{Name: "pit", Base: addrPIT, Size: sizeMisc, Device: s.PIT},
	}

	regions = append(regions, reservedRegions()...)
	regions = append(regions, unimplementedRegions(policy)...)

	return mmio.NewFabric(regions), nil
}

// reservedRegions reproduces the ten map_reserved_memory_region calls in
// iobc_soc_realize exactly: any access anywhere in these ranges aborts.
func reservedRegions() []mmio.Region {
	r := func(name string, base, size uint32) mmio.Region {
		return mmio.Region{Name: name, Base: base, Size: size, Device: mmio.ReservedRegion{Name: name}}
	}
	return []mmio.Region{
		r("undefined", 0x90000000, 0xf0000000-0x90000000),
		r("periph_reserved0", 0xf0000000, 0xfffa0000-0xf0000000),
		r("periph_reserved1", 0xfffe4000, 0xffffc000-0xfffe4000),
		r("periph_reserved2", 0xffffc000, 0xffffe800-0xffffc000),
		r("periph_reserved3", 0xfffffa00, 0xfffffc00-0xfffffa00),
		r("periph_reserved4", 0xfffffd60, 0x2a0),
		r("internal_reserved0", 0x108000, 0x200000-0x108000),
		r("internal_reserved1", 0x204000, 0x300000-0x204000),
		r("internal_reserved2", 0x304000, 0x400000-0x304000),
		r("internal_reserved3", 0x504000, 0x0fffffff-0x504000),
	}
}

// unimplementedRegions reproduces the seventeen map_unimplemented_device
// calls: every peripheral the distilled spec's Non-goals exclude from
// real modelling, still present so firmware probing them gets a
// policy-governed response instead of an unmapped-address abort.
func unimplementedRegions(policy config.UnimplementedPolicy) []mmio.Region {
	u := func(name string, base, size uint32) mmio.Region {
		return mmio.Region{Name: name, Base: base, Size: size, Device: mmio.UnimplementedRegion{Name: name, Policy: policy}}
	}
	return []mmio.Region{
		u("uhp", 0x00500000, 0x4000),
		u("ebi_cs2", 0x30000000, 0x10000000),
		u("ebi_cs3", 0x40000000, 0x10000000),
		u("ebi_cs4", 0x50000000, 0x10000000),
		u("ebi_cs5", 0x60000000, 0x10000000),
		u("ebi_cs6", 0x70000000, 0x10000000),
		u("ebi_cs7", 0x80000000, 0x10000000),
		u("udp", 0xfffa4000, 0x4000),
		u("ssc", 0xfffbc000, 0x4000),
		u("isi", 0xfffc0000, 0x4000),
		u("emac", 0xfffc4000, 0x4000),
		u("adc", 0xfffe0000, 0x4000),
		u("ecc", 0xffffe800, 0x200),
		u("smc", 0xffffec00, 0x200),
		u("shdwc", 0xfffffd10, 0x10),
		u("wdt", 0xfffffd40, 0x10),
		u("gpbr", 0xfffffd50, 0x10),
	}
}

// Reset drives a board-level reset in two phases, matching §9's design
// note: every peripheral first resets its own register state
// independently, then the state that depends on more than one already-
// reset peripheral — the NOR-to-SDRAM hardware copy-on-boot and the
// boot-memory alias Matrix's MRCR drives — is re-derived.
func (s *SoC) Reset() {
	s.AIC.Reset()
	s.PMC.Reset()
	s.Matrix.Reset()
	s.DBGU.Reset()
	s.PIOA.Reset()
	s.PIOB.Reset()
	s.PIOC.Reset()
	s.TWI.Reset()
	for _, u := range s.USART {
		u.Reset()
	}
	for _, p := range s.SPI {
		p.Reset()
	}
	s.SDRAMC.Reset()
	s.MCI.Reset()
	s.TC012.Reset()
	s.TC345.Reset()
	s.RSTC.Reset()
	s.RTT.Reset()
	s.PIT.Reset()

	copy(s.SDRAM.Bytes(), s.PFlash.Bytes())
	s.Matrix.UpdateBootmem()
}

// Close shuts down every IOX listener and detaches DBGU's stdin, for an
// orderly process exit.
func (s *SoC) Close() error {
	var first error
	for _, srv := range s.ioxServers {
		if err := srv.Close(); err != nil && first == nil {
			first = err
		}
	}
	if s.DBGU != nil {
		if err := s.DBGU.DetachStdin(); err != nil && first == nil {
			first = err
		}
	}
	if s.dbguSerial != nil {
		if err := s.dbguSerial.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
