package board

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ── Layout files ─────────────────────────────────────────────────────
//
// Two formats are accepted, chosen by file extension:
//
//	YAML (.yaml, .yml):
//	  ships:
//	    - {length: 4, x: 3, y: 4, orientation: vertical}
//
//	XML (.xml), one <ship> element per ship with its length in "type";
//	the root element name is not checked:
//	  <fleet>
//	    <ship type="4" x="3" y="4" orientation="vertical"/>
//	  </fleet>

// LoadLayout reads a ship layout from path.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	l, err := ParseLayout(data, formatOf(path))
	if err != nil {
		return Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}
	return l, nil
}

// ParseLayout decodes a layout in the given format ("yaml" or "xml").
func ParseLayout(data []byte, format string) (Layout, error) {
	switch format {
	case "yaml":
		var l Layout
		if err := yaml.Unmarshal(data, &l); err != nil {
			return Layout{}, err
		}
		return l, nil
	case "xml":
		return parseXMLLayout(data)
	}
	return Layout{}, fmt.Errorf("unsupported layout format %q", format)
}

type xmlShip struct {
	Type        int    `xml:"type,attr"`
	X           int    `xml:"x,attr"`
	Y           int    `xml:"y,attr"`
	Orientation string `xml:"orientation,attr"`
}

// parseXMLLayout collects every <ship> element, whatever the root is
// called and however deeply the ships are nested.
func parseXMLLayout(data []byte) (Layout, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	l := Layout{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Layout{}, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "ship" {
			continue
		}
		var s xmlShip
		if err := dec.DecodeElement(&s, &se); err != nil {
			return Layout{}, err
		}
		o, err := ParseOrientation(s.Orientation)
		if err != nil {
			return Layout{}, fmt.Errorf("ship %d: %w", len(l.Ships), err)
		}
		l.Ships = append(l.Ships, Placement{Length: s.Type, X: s.X, Y: s.Y, Orientation: o})
	}
	return l, nil
}

// ── Fleet files ──────────────────────────────────────────────────────
//
//	fleet:
//	  - {length: 4, count: 1}
//	  - {length: 3, count: 2}

type fleetFile struct {
	Fleet []struct {
		Length int `yaml:"length"`
		Count  int `yaml:"count"`
	} `yaml:"fleet"`
}

// LoadFleet reads and validates a fleet composition from a YAML file.
func LoadFleet(path string) (Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet: %w", err)
	}
	var ff fleetFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parse fleet %s: %w", path, err)
	}
	f := Fleet{}
	for _, e := range ff.Fleet {
		f[e.Length] += e.Count
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fleet %s: %w", path, err)
	}
	return f, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return "xml"
	case ".yaml", ".yml":
		return "yaml"
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
