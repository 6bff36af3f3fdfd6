// Command demotarget serves a small web application for pointing the
// scanner at. -profile selects a hardened target or one riddled with the
// misconfigurations the scanner looks for.
package main

import (
	"flag"
	"log"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/demosite"
)

func main() {
	cfg := demosite.DefaultConfig()
	port := flag.Int("port", cfg.Port, "port to listen on")
	profile := flag.String("profile", string(cfg.Profile), "target profile: hardened or sloppy")
	flag.Parse()

	cfg.Port = *port
	switch demosite.Profile(*profile) {
	case demosite.ProfileHardened, demosite.ProfileSloppy:
		cfg.Profile = demosite.Profile(*profile)
	default:
		log.Fatalf("unknown profile %q", *profile)
	}

	log.Printf("demo target (%s) listening on :%d", cfg.Profile, cfg.Port)
	if err := demosite.New(cfg).Start(); err != nil {
		log.Fatalf("demo target: %v", err)
	}
}
