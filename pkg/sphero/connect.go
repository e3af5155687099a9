package sphero

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/spherodrive/pkg/config"
)

// Connect finds and wakes the toy called name (any known toy if empty) over the configured
// transport.  If nothing matches the error wraps ErrToyNotFound.
func Connect(cfg config.ToyConfig, name string) (Interface, error) {
	toy, err := dial(cfg, name)
	if err != nil {
		if os.Getenv("IGNORE_MISSING_TOY") == "true" {
			fmt.Printf("Failed to connect to toy: %v.\nUsing dummy toy\n", err)
			return Dummy(name), nil
		}
		return nil, err
	}
	if t, ok := toy.(*Toy); ok {
		fmt.Printf("Toy: %s is a %s, waking it\n", t.Name, t.Model.Name)
		if err := t.Wake(); err != nil {
			_ = t.Close()
			return nil, err
		}
	}
	return toy, nil
}

func dial(cfg config.ToyConfig, name string) (Interface, error) {
	switch cfg.Transport {
	case "dummy":
		return Dummy(name), nil
	case "ble":
		transport, advertised, err := DialBLE(name, cfg.ScanTimeout)
		if err != nil {
			return nil, err
		}
		return NewToy(advertised, transport), nil
	case "serial":
		transport, err := OpenSerial(cfg.SerialPort, cfg.Baud)
		if err != nil {
			return nil, errors.Wrap(ErrToyNotFound, err.Error())
		}
		return NewToy(name, transport), nil
	case "bridge":
		transport, err := StartBridge(cfg.BridgeCommand)
		if err != nil {
			return nil, errors.Wrap(ErrToyNotFound, err.Error())
		}
		return NewToy(name, transport), nil
	default:
		return nil, errors.Errorf("unknown toy transport %q", cfg.Transport)
	}
}
