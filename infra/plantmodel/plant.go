// Package plantmodel reads plant model files (points, paths, locations,
// vehicles and initial transport orders) and loads them into an object pool.
package plantmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/agvkernel/core/model"
)

// Plant is the file representation of a plant model.
type Plant struct {
	Name           string          `json:"name" yaml:"name"`
	Points         []Point         `json:"points" yaml:"points"`
	Paths          []Path          `json:"paths" yaml:"paths"`
	LocationTypes  []string        `json:"location_types" yaml:"location_types"`
	Locations      []Location      `json:"locations" yaml:"locations"`
	Vehicles       []Vehicle       `json:"vehicles" yaml:"vehicles"`
	Sequences      []Sequence      `json:"sequences" yaml:"sequences"`
	Orders         []Order         `json:"orders" yaml:"orders"`
	PeripheralJobs []PeripheralJob `json:"peripheral_jobs" yaml:"peripheral_jobs"`
}

type Point struct {
	Name string `json:"name" yaml:"name"`
	// Type is HALT (default) or PARK.
	Type string `json:"type" yaml:"type"`
}

type Path struct {
	Name        string `json:"name" yaml:"name"`
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	Length      int64  `json:"length" yaml:"length"`
	Locked      bool   `json:"locked" yaml:"locked"`
	// Bidirectional adds the reverse path named "<destination>--<source>".
	Bidirectional bool `json:"bidirectional" yaml:"bidirectional"`
}

type Location struct {
	Name   string   `json:"name" yaml:"name"`
	Type   string   `json:"type" yaml:"type"`
	Links  []string `json:"links" yaml:"links"`
	Locked bool     `json:"locked" yaml:"locked"`
}

type Vehicle struct {
	Name                             string                      `json:"name" yaml:"name"`
	Position                         string                      `json:"position" yaml:"position"`
	State                            string                      `json:"state" yaml:"state"`
	IntegrationLevel                 string                      `json:"integration_level" yaml:"integration_level"`
	EnergyLevel                      int                         `json:"energy_level" yaml:"energy_level"`
	EnergyLevelCritical              int                         `json:"energy_level_critical" yaml:"energy_level_critical"`
	EnergyLevelGood                  int                         `json:"energy_level_good" yaml:"energy_level_good"`
	EnergyLevelSufficientlyRecharged int                         `json:"energy_level_sufficiently_recharged" yaml:"energy_level_sufficiently_recharged"`
	EnergyLevelFullyRecharged        int                         `json:"energy_level_fully_recharged" yaml:"energy_level_fully_recharged"`
	AcceptableOrderTypes             []model.AcceptableOrderType `json:"acceptable_order_types" yaml:"acceptable_order_types"`
	Paused                           bool                        `json:"paused" yaml:"paused"`
}

type Sequence struct {
	Name     string `json:"name" yaml:"name"`
	Complete bool   `json:"complete" yaml:"complete"`
}

// Destination targets either a location (with an operation) or a point.
type Destination struct {
	Location  string `json:"location" yaml:"location"`
	Point     string `json:"point" yaml:"point"`
	Operation string `json:"operation" yaml:"operation"`
}

type Order struct {
	Name            string        `json:"name" yaml:"name"`
	Type            string        `json:"type" yaml:"type"`
	Destinations    []Destination `json:"destinations" yaml:"destinations"`
	Deadline        time.Time     `json:"deadline" yaml:"deadline"`
	IntendedVehicle string        `json:"intended_vehicle" yaml:"intended_vehicle"`
	Dependencies    []string      `json:"dependencies" yaml:"dependencies"`
	Dispensable     bool          `json:"dispensable" yaml:"dispensable"`
	Sequence        string        `json:"sequence" yaml:"sequence"`
}

type PeripheralJob struct {
	Name               string `json:"name" yaml:"name"`
	Order              string `json:"order" yaml:"order"`
	Vehicle            string `json:"vehicle" yaml:"vehicle"`
	Location           string `json:"location" yaml:"location"`
	Operation          string `json:"operation" yaml:"operation"`
	CompletionRequired bool   `json:"completion_required" yaml:"completion_required"`
}

// LoadFile reads a plant model from a JSON or YAML file.
func LoadFile(path string) (*Plant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// Decode reads a plant model in the given format ("yaml", "yml" or "json")
// and validates it.
func Decode(r io.Reader, format string) (*Plant, error) {
	var p Plant
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&p); err != nil {
			return nil, fmt.Errorf("decode plant model: %w", err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&p); err != nil {
			return nil, fmt.Errorf("decode plant model: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported plant model format: %s", format)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks names are unique and references resolve.
func (p *Plant) Validate() error {
	var errs []error
	points := map[string]bool{}
	for _, pt := range p.Points {
		if pt.Name == "" || points[pt.Name] {
			errs = append(errs, fmt.Errorf("point %q: empty or duplicate name", pt.Name))
		}
		points[pt.Name] = true
		if _, err := pointType(pt.Type); err != nil {
			errs = append(errs, err)
		}
	}
	paths := map[string]bool{}
	for _, path := range p.expandedPaths() {
		if paths[path.Name] {
			errs = append(errs, fmt.Errorf("path %q: duplicate name", path.Name))
		}
		paths[path.Name] = true
		if !points[path.Source] || !points[path.Destination] {
			errs = append(errs, fmt.Errorf("path %q: unknown source or destination", path.Name))
		}
		if path.Length <= 0 {
			errs = append(errs, fmt.Errorf("path %q: length must be positive", path.Name))
		}
	}
	locations := map[string]bool{}
	for _, loc := range p.Locations {
		locations[loc.Name] = true
		for _, l := range loc.Links {
			if !points[l] {
				errs = append(errs, fmt.Errorf("location %q: unknown linked point %q", loc.Name, l))
			}
		}
	}
	for _, v := range p.Vehicles {
		if v.Position != "" && !points[v.Position] {
			errs = append(errs, fmt.Errorf("vehicle %q: unknown position %q", v.Name, v.Position))
		}
		if _, err := v.model(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, o := range p.Orders {
		if len(o.Destinations) == 0 {
			errs = append(errs, fmt.Errorf("order %q: no destinations", o.Name))
		}
		for _, d := range o.Destinations {
			if (d.Location == "") == (d.Point == "") {
				errs = append(errs, fmt.Errorf("order %q: destination needs exactly one of location or point", o.Name))
			}
		}
	}
	return errors.Join(errs...)
}

// expandedPaths returns the declared paths plus the reverse of bidirectional ones.
func (p *Plant) expandedPaths() []Path {
	res := make([]Path, 0, len(p.Paths))
	for _, path := range p.Paths {
		res = append(res, path)
		if path.Bidirectional {
			rev := path
			rev.Name = path.Destination + "--" + path.Source
			rev.Source, rev.Destination = path.Destination, path.Source
			res = append(res, rev)
		}
	}
	return res
}

func pointType(s string) (model.PointType, error) {
	switch strings.ToUpper(s) {
	case "", "HALT":
		return model.PointTypeHalt, nil
	case "PARK":
		return model.PointTypePark, nil
	}
	return 0, fmt.Errorf("unknown point type %q", s)
}

func (v Vehicle) model() (model.Vehicle, error) {
	state := model.VehicleStateIdle
	if v.State != "" {
		st, ok := model.ParseVehicleState(strings.ToUpper(v.State))
		if !ok {
			return model.Vehicle{}, fmt.Errorf("vehicle %q: unknown state %q", v.Name, v.State)
		}
		state = st
	}
	level := model.IntegrationToBeUtilized
	if v.IntegrationLevel != "" {
		l, ok := model.ParseIntegrationLevel(strings.ToUpper(v.IntegrationLevel))
		if !ok {
			return model.Vehicle{}, fmt.Errorf("vehicle %q: unknown integration level %q", v.Name, v.IntegrationLevel)
		}
		level = l
	}
	types := v.AcceptableOrderTypes
	if len(types) == 0 {
		types = []model.AcceptableOrderType{{Name: model.OrderTypeAny}}
	}
	return model.Vehicle{
		Name:                             v.Name,
		State:                            state,
		ProcState:                        model.ProcStateIdle,
		IntegrationLevel:                 level,
		EnergyLevel:                      v.EnergyLevel,
		EnergyLevelCritical:              v.EnergyLevelCritical,
		EnergyLevelGood:                  v.EnergyLevelGood,
		EnergyLevelSufficientlyRecharged: v.EnergyLevelSufficientlyRecharged,
		EnergyLevelFullyRecharged:        v.EnergyLevelFullyRecharged,
		CurrentPosition:                  v.Position,
		AcceptableOrderTypes:             types,
		Paused:                           v.Paused,
	}, nil
}

// TransportOrder converts the order into a transport order ready to be
// created by the kernel.
func (o Order) TransportOrder() model.TransportOrder {
	dos := make([]model.DriveOrder, len(o.Destinations))
	for i, d := range o.Destinations {
		dest := model.Destination{Kind: model.LocationDestination, Name: d.Location, Operation: d.Operation}
		if d.Point != "" {
			dest = model.Destination{Kind: model.PointDestination, Name: d.Point, Operation: d.Operation}
		}
		dos[i] = model.DriveOrder{Destination: dest}
	}
	return model.TransportOrder{
		Name:             o.Name,
		Type:             o.Type,
		DriveOrders:      dos,
		Deadline:         o.Deadline,
		Dispensable:      o.Dispensable,
		WrappingSequence: o.Sequence,
		IntendedVehicle:  o.IntendedVehicle,
		Dependencies:     append([]string(nil), o.Dependencies...),
	}
}

// TransportOrders converts all initial orders.
func (p *Plant) TransportOrders() []model.TransportOrder {
	res := make([]model.TransportOrder, len(p.Orders))
	for i, o := range p.Orders {
		res[i] = o.TransportOrder()
	}
	return res
}

// CompleteSequences lists the sequences the plant file marks complete.
func (p *Plant) CompleteSequences() []string {
	var res []string
	for _, s := range p.Sequences {
		if s.Complete {
			res = append(res, s.Name)
		}
	}
	return res
}
