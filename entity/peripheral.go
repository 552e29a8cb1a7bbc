package entity

import (
	_ "embed"
	"fmt"

	"github.com/panelkit/panelctl/protocol/perrors"

	"gopkg.in/yaml.v3"
)

//go:embed peripherals/definitions.yaml
var peripheralTableYAML []byte

// PeripheralDefinition supplies the write-only fields (rx, tx, private data,
// reserved flags) a registration or set-enabled write needs but a read never
// returns. The table is static, keyed by (type, subtype, protocol).
type PeripheralDefinition struct {
	Name        string `yaml:"name"`
	Type        int    `yaml:"type"`
	Subtype     int    `yaml:"subtype"`
	Protocol    int    `yaml:"protocol"`
	RX          int    `yaml:"rx"`
	TX          int    `yaml:"tx"`
	PrivateData string `yaml:"privateData"`
	Reserved    int    `yaml:"reserved"`
	NodeCount   int    `yaml:"nodeCount"`
	Baudrate    int    `yaml:"baudrate"`
	Timeout     int    `yaml:"timeout"`
}

type peripheralTable struct {
	Definitions []PeripheralDefinition `yaml:"definitions"`
}

var peripherals peripheralTable

func init() {
	if err := yaml.Unmarshal(peripheralTableYAML, &peripherals); err != nil {
		panic(fmt.Sprintf("entity: malformed embedded peripheral table: %v", err))
	}
	seenNames := map[string]bool{}
	seenKeys := map[[3]int]bool{}
	for _, d := range peripherals.Definitions {
		if seenNames[d.Name] {
			panic(fmt.Sprintf("entity: duplicate peripheral definition name %q", d.Name))
		}
		seenNames[d.Name] = true
		key := [3]int{d.Type, d.Subtype, d.Protocol}
		if seenKeys[key] {
			panic(fmt.Sprintf("entity: duplicate peripheral definition for type=%d subtype=%d protocol=%d", d.Type, d.Subtype, d.Protocol))
		}
		seenKeys[key] = true
	}
}

// FindPeripheralDefinitionByName looks up a definition by its unique name,
// used by the registration handshake.
func FindPeripheralDefinitionByName(name string) (PeripheralDefinition, error) {
	for _, d := range peripherals.Definitions {
		if d.Name == name {
			return d, nil
		}
	}
	return PeripheralDefinition{}, perrors.Newf(perrors.PeripheralDefinitionNotFound, "no peripheral definition named %q", name)
}

// FindPeripheralDefinition looks up a definition by (type, subtype,
// protocol), used by set-enabled to decide whether a sensor is mutable.
func FindPeripheralDefinition(typ, subtype, protocol int) (PeripheralDefinition, error) {
	for _, d := range peripherals.Definitions {
		if d.Type == typ && d.Subtype == subtype && d.Protocol == protocol {
			return d, nil
		}
	}
	return PeripheralDefinition{}, perrors.Newf(perrors.PeripheralDefinitionNotFound,
		"no peripheral definition for type=%d subtype=%d protocol=%d", typ, subtype, protocol)
}
