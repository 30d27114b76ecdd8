// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package targets

import "fmt"

func init() {
	register(&Target{
		Name:        "usbctl",
		Description: "register-level model of a USB host controller with DMA, interrupts and 4 root ports",
		Fn:          runUSBCtl,
		Seeds: [][]byte{
			{usbRun, usbPortConnect, 0, usbPortReset, 0, usbDMALoad, 0x10, usbDMAArm, usbIRQEnable, usbDMAGo, usbIRQAck},
			{usbRun, usbSuspend, usbRun, usbHalt},
		},
	})
}

// State machine ids.
const (
	smController = 0
	smDMA        = 1
	smIRQ        = 2
	smDesc       = 3
	smPort0      = 8
	numPorts     = 4
)

// Controller states.
const (
	ctlHalted = iota
	ctlRunning
	ctlResetting
	ctlSuspended
	ctlError
)

// DMA engine states.
const (
	dmaIdle = iota
	dmaLoaded
	dmaArmed
	dmaTransferring
	dmaDone
	dmaStalled
	dmaFault
)

// Interrupt unit states.
const (
	irqMasked = iota
	irqEnabled
	irqPending
	irqAcked
)

// Descriptor ring states.
const (
	descEmpty = iota
	descValid
	descFreed
)

// Port states.
const (
	portDisconnected = iota
	portConnected
	portResetting
	portEnabled
	portSuspended
)

// Register writes. Commands marked with an argument consume the next input byte.
const (
	usbRun = iota
	usbHalt
	usbReset
	usbSuspend
	usbDMALoad // arg: descriptor address
	usbDMAArm
	usbDMAGo
	usbIRQEnable
	usbIRQAck
	usbIRQMask
	usbPortConnect // arg: port
	usbPortReset   // arg: port
	usbPortSuspend // arg: port
	usbPortDisconnect
	usbDMAFree
	usbNop
	usbNumCommands
)

type usbCtl struct {
	rec       Recorder
	ctl       int
	dma       int
	irq       int
	ports     [numPorts]int
	desc      byte
	descState int
	everRan   bool
}

func runUSBCtl(data []byte, rec Recorder) {
	c := &usbCtl{rec: rec}
	c.setCtl(ctlHalted)
	c.setDMA(dmaIdle)
	c.setIRQ(irqMasked)
	for i := 0; i < len(data); i++ {
		cmd := int(data[i]) % usbNumCommands
		arg := -1
		switch cmd {
		case usbDMALoad, usbPortConnect, usbPortReset, usbPortSuspend, usbPortDisconnect:
			if i+1 == len(data) {
				return
			}
			i++
			arg = int(data[i])
		}
		c.exec(cmd, arg)
	}
}

func (c *usbCtl) setCtl(s int) { c.ctl = s; c.rec.UpdateState(smController, s) }
func (c *usbCtl) setDMA(s int) { c.dma = s; c.rec.UpdateState(smDMA, s) }
func (c *usbCtl) setIRQ(s int) { c.irq = s; c.rec.UpdateState(smIRQ, s) }

func (c *usbCtl) setDesc(s int) { c.descState = s; c.rec.UpdateState(smDesc, s) }

func (c *usbCtl) setPort(port, s int) {
	c.ports[port] = s
	c.rec.UpdateState(smPort0+port, s)
}

func (c *usbCtl) exec(cmd, arg int) {
	if c.ctl == ctlResetting && cmd != usbNop {
		// Reset completes on the next register access.
		c.setCtl(ctlHalted)
	}
	switch cmd {
	case usbRun:
		switch c.ctl {
		case ctlHalted, ctlSuspended:
			c.everRan = true
			c.setCtl(ctlRunning)
		case ctlError:
			// Needs a reset.
		}
	case usbHalt:
		if c.ctl != ctlError {
			c.setCtl(ctlHalted)
		}
	case usbReset:
		c.setCtl(ctlResetting)
		c.setDMA(dmaIdle)
		c.setIRQ(irqMasked)
		if c.descState != descEmpty {
			c.setDesc(descEmpty)
		}
		for port := range c.ports {
			if c.ports[port] != portDisconnected {
				c.setPort(port, portConnected)
			}
		}
	case usbSuspend:
		if c.ctl == ctlRunning {
			c.setCtl(ctlSuspended)
			for port := range c.ports {
				if c.ports[port] == portEnabled {
					c.setPort(port, portSuspended)
				}
			}
		}
	case usbDMALoad:
		switch c.dma {
		case dmaIdle, dmaDone, dmaStalled:
			c.desc = byte(arg)
			c.setDesc(descValid)
			c.setDMA(dmaLoaded)
		case dmaTransferring:
			c.fault()
		}
	case usbDMAArm:
		if c.dma == dmaLoaded {
			c.setDMA(dmaArmed)
		}
	case usbDMAGo:
		c.dmaGo()
	case usbDMAFree:
		if c.descState == descValid {
			c.setDesc(descFreed)
		}
	case usbIRQEnable:
		if c.irq == irqMasked {
			c.setIRQ(irqEnabled)
		}
	case usbIRQAck:
		if c.irq == irqPending {
			c.setIRQ(irqAcked)
			c.setIRQ(irqEnabled)
		}
	case usbIRQMask:
		c.setIRQ(irqMasked)
	case usbPortConnect:
		if port := arg % numPorts; c.ports[port] == portDisconnected {
			c.setPort(port, portConnected)
		}
	case usbPortReset:
		port := arg % numPorts
		if c.ports[port] == portConnected && c.ctl == ctlRunning {
			c.setPort(port, portResetting)
			c.setPort(port, portEnabled)
		}
	case usbPortSuspend:
		if port := arg % numPorts; c.ports[port] == portEnabled {
			c.setPort(port, portSuspended)
		}
	case usbPortDisconnect:
		if port := arg % numPorts; c.ports[port] != portDisconnected {
			c.setPort(port, portDisconnected)
			if c.dma == dmaTransferring {
				c.fault()
			}
		}
	}
}

func (c *usbCtl) dmaGo() {
	if c.dma != dmaArmed && c.dma != dmaStalled {
		return
	}
	if c.ctl != ctlRunning {
		enabled := false
		for _, s := range c.ports {
			enabled = enabled || s == portEnabled || s == portSuspended
		}
		if c.descState == descFreed && c.everRan && enabled {
			// The halted controller still walks the descriptor list.
			panic(fmt.Sprintf("usbctl: DMA from freed descriptor %#x", c.desc))
		}
		c.setDMA(dmaStalled)
		return
	}
	if c.descState == descFreed {
		c.fault()
		return
	}
	c.setDMA(dmaTransferring)
	c.setDMA(dmaDone)
	if c.irq == irqEnabled {
		c.setIRQ(irqPending)
	}
}

func (c *usbCtl) fault() {
	c.setDMA(dmaFault)
	c.setCtl(ctlError)
	if c.irq == irqEnabled {
		c.setIRQ(irqPending)
	}
}
