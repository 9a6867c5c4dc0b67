// Command `owen-probe` is an interactive console tool for commissioning a
// counter on the bench: it opens the configured serial line, reads one
// device on demand, and lets the operator flip between parameters with
// single keystrokes.
//
// Keys:
//
//	r          read the selected parameter again
//	d / s / t  select DCNT / DSPD / DTMR
//	q / ESC    quit
//
// Flags:
//
//	-config: path to the settings JSON (default ./settings.json)
//	-addr:   device address to probe (default 2)
//	-bits:   address width, 8 or 11 (default 8)
//	-list:   list detected serial ports and exit
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/eiannone/keyboard"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/bus"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/models"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/owen"
)

func main() {
	var (
		config = flag.String("config", "./settings.json", "path to settings JSON")
		addr   = flag.Int("addr", 2, "device address to probe")
		bits   = flag.Int("bits", 8, "address width (8 or 11)")
		list   = flag.Bool("list", false, "list detected serial ports and exit")
	)
	flag.Parse()

	if *list {
		for _, p := range bus.ListPorts() {
			fmt.Println(p)
		}
		return
	}

	set, err := models.Load(*config)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if set.Serial == nil {
		log.Fatalf("No serial_settings in %s", *config)
	}

	device, err := owen.New(*addr, *bits)
	if err != nil {
		log.Fatalf("Bad device address: %v", err)
	}

	line, err := bus.Open(set.Serial)
	if err != nil {
		log.Printf("ERROR: open %s: %v", set.Serial.Port, err)
		log.Fatalf("Available ports: %v", bus.ListPorts())
	}
	defer line.Close()

	if err := keyboard.Open(); err != nil {
		log.Fatalf("Keyboard: %v", err)
	}
	defer keyboard.Close()

	fmt.Printf("Probing addr %d (%d-bit) on %s. r=read d/s/t=parameter q=quit\n",
		*addr, *bits, set.Serial.Port)

	pid := owen.DCNT
	read(device, line, pid)
	for {
		ch, key, err := keyboard.GetKey()
		if err != nil {
			log.Fatalf("Keyboard: %v", err)
		}
		switch {
		case ch == 'q' || ch == 'Q' || key == keyboard.KeyEsc:
			return
		case ch == 'r' || ch == 'R':
			read(device, line, pid)
		case ch == 'd' || ch == 'D':
			pid = owen.DCNT
			read(device, line, pid)
		case ch == 's' || ch == 'S':
			pid = owen.DSPD
			read(device, line, pid)
		case ch == 't' || ch == 'T':
			pid = owen.DTMR
			read(device, line, pid)
		}
	}
}

func read(device *owen.Device, line owen.Transactor, pid owen.Parameter) {
	value, err := device.ReadParameter(line, pid)
	if err != nil {
		fmt.Printf("%s: ERROR %v\n", pid, err)
		return
	}
	switch v := value.(type) {
	case owen.Count:
		fmt.Printf("%s: %d\n", pid, int64(v))
	case owen.Elapsed:
		fmt.Printf("%s: %v\n", pid, time.Duration(v))
	default:
		fmt.Printf("%s: no value\n", pid)
	}
}
