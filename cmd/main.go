package main

import (
	"flag"
	"log"

	"github.com/pkg/profile"

	"github.com/sadgedog/Hobby-Nes-Emulator/internal/nes"
	"github.com/sadgedog/Hobby-Nes-Emulator/internal/ui"
)

func main() {
	romPath := flag.String("rom", "", "path to an iNES rom file")
	profileMode := flag.Bool("profile", false, "write a cpu profile on exit")
	flag.Parse()

	if *romPath == "" {
		log.Fatalf("usage: %s -rom <file.nes>\n", flag.CommandLine.Name())
	}

	if *profileMode {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	cart, err := nes.NewCartFromFile(*romPath)
	if err != nil {
		log.Fatalf("couldn't load rom %s: %s\n", *romPath, err.Error())
	}

	bus := nes.NewBus(cart)
	if err := ui.New(bus).Run(); err != nil {
		log.Fatalf("emulation failed: %s\n", err.Error())
	}
}
