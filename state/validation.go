package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
)

var namePattern = regexp.MustCompile("^[0-9A-Za-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func LinkValidator(cfg *TopologyCfg, link LinkCfg) error {
	if !cfg.IsRouter(link.From) {
		return &ConfigError{Op: "link", Router: link.From, Peer: link.To, Err: fmt.Errorf("%w: %s", ErrUnknownRouter, link.From)}
	}
	if !cfg.IsRouter(link.To) {
		return &ConfigError{Op: "link", Router: link.From, Peer: link.To, Err: fmt.Errorf("%w: %s", ErrUnknownRouter, link.To)}
	}
	if link.From == link.To {
		return &ConfigError{Op: "link", Router: link.From, Peer: link.To, Err: ErrSelfLink}
	}
	if cfg.MetricOf(link) == INF {
		return &ConfigError{Op: "link", Router: link.From, Peer: link.To, Err: ErrInvalidMetric}
	}
	return nil
}

func TopologyConfigValidator(cfg *TopologyCfg) error {
	if cfg.Interval < 0 {
		return fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if cfg.Mode != Sequential && cfg.Mode != Synchronous {
		return fmt.Errorf("unknown tick mode %s", cfg.Mode)
	}
	seen := make([]RouterId, 0, len(cfg.Routers))
	for _, r := range cfg.Routers {
		err := NameValidator(string(r.Id))
		if err != nil {
			return err
		}
		if slices.Contains(seen, r.Id) {
			return &ConfigError{Op: "router", Router: r.Id, Err: ErrDuplicateRouter}
		}
		seen = append(seen, r.Id)
		if r.Prefix != nil && !r.Prefix.IsValid() {
			return fmt.Errorf("router %s has an invalid prefix", r.Id)
		}
	}

	links, err := cfg.GetLinks()
	if err != nil {
		return err
	}
	// directed edges already declared, undirected links occupy both directions
	edges := make([]Pair[RouterId, RouterId], 0)
	for _, link := range links {
		err = LinkValidator(cfg, link)
		if err != nil {
			return err
		}
		dirs := []Pair[RouterId, RouterId]{{link.From, link.To}}
		if !link.Directed {
			dirs = append(dirs, Pair[RouterId, RouterId]{link.To, link.From})
		}
		for _, e := range dirs {
			if slices.Contains(edges, e) {
				return fmt.Errorf("duplicate link found: %s, %s", e.V1, e.V2)
			}
			edges = append(edges, e)
		}
	}
	return nil
}
