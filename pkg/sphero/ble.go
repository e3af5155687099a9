package sphero

import (
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus"
	"github.com/pkg/errors"
)

// GATT layout shared by the API v2 toys.
const (
	APIServiceUUID        = "00010001-574f-4f20-5370-6865726f2121"
	APICharacteristicUUID = "00010002-574f-4f20-5370-6865726f2121"
	AntiDoSCharUUID       = "00020005-574f-4f20-5370-6865726f2121"

	antiDoSUnlock = "usetheforce...band"
)

const (
	BlueZBusName                 = "org.bluez"
	Adapter1Interface            = "org.bluez.Adapter1"
	Device1Interface             = "org.bluez.Device1"
	GattCharacteristic1Interface = "org.bluez.GattCharacteristic1"
	ObjectManagerInterface       = "org.freedesktop.DBus.ObjectManager"
	PropertiesInterface          = "org.freedesktop.DBus.Properties"
	PropertiesChanged            = "org.freedesktop.DBus.Properties.PropertiesChanged"

	scanPollInterval = 500 * time.Millisecond
	servicesTimeout  = 10 * time.Second
)

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// bleTransport talks to the toy's API characteristic through BlueZ.  Notifications arrive as
// PropertiesChanged signals on the characteristic; they are consumed directly in ReadChunk.
type bleTransport struct {
	conn       *dbus.Conn
	devicePath dbus.ObjectPath
	apiChar    dbus.ObjectPath
	signals    chan *dbus.Signal
}

// DialBLE scans for a toy whose advertised name matches want (any known model if empty),
// connects and unlocks it.  It returns the transport and the name the toy advertised.
func DialBLE(want string, scanTimeout time.Duration) (Transport, string, error) {
	conn, err := dbus.SystemBusPrivate()
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to connect to the system bus")
	}
	if err = conn.Auth(nil); err != nil {
		conn.Close()
		return nil, "", errors.Wrap(err, "system bus auth failed")
	}
	if err = conn.Hello(); err != nil {
		conn.Close()
		return nil, "", errors.Wrap(err, "system bus hello failed")
	}

	t := &bleTransport{
		conn:    conn,
		signals: make(chan *dbus.Signal, 64),
	}
	name, err := t.connect(want, scanTimeout)
	if err != nil {
		conn.Close()
		return nil, "", err
	}
	return t, name, nil
}

func (t *bleTransport) objects() (managedObjects, error) {
	var objs managedObjects
	err := t.conn.Object(BlueZBusName, "/").Call(ObjectManagerInterface+".GetManagedObjects", 0).Store(&objs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list bluez objects")
	}
	return objs, nil
}

func (t *bleTransport) connect(want string, scanTimeout time.Duration) (string, error) {
	objs, err := t.objects()
	if err != nil {
		return "", err
	}
	var adapter dbus.ObjectPath
	for path, ifaces := range objs {
		if _, ok := ifaces[Adapter1Interface]; ok {
			adapter = path
			break
		}
	}
	if adapter == "" {
		return "", errors.New("no bluetooth adapter found")
	}

	fmt.Println("[bluez] starting discovery on", adapter)
	call := t.conn.Object(BlueZBusName, adapter).Call(Adapter1Interface+".StartDiscovery", 0)
	if call.Err != nil && !strings.Contains(call.Err.Error(), "InProgress") {
		return "", errors.Wrap(call.Err, "failed to start discovery")
	}
	defer func() {
		fmt.Println("[bluez] stopping discovery")
		t.conn.Object(BlueZBusName, adapter).Call(Adapter1Interface+".StopDiscovery", 0)
	}()

	var name string
	deadline := time.Now().Add(scanTimeout)
	for t.devicePath == "" {
		if time.Now().After(deadline) {
			return "", ErrToyNotFound
		}
		objs, err := t.objects()
		if err != nil {
			return "", err
		}
		t.devicePath, name = findToy(objs, want)
		if t.devicePath == "" {
			time.Sleep(scanPollInterval)
		}
	}

	fmt.Println("[bluez] connecting to", name, t.devicePath)
	dev := t.conn.Object(BlueZBusName, t.devicePath)
	if err := dev.Call(Device1Interface+".Connect", 0).Err; err != nil {
		return "", errors.Wrapf(err, "failed to connect to %s", name)
	}
	if err := t.waitForServices(); err != nil {
		return "", err
	}

	objs, err = t.objects()
	if err != nil {
		return "", err
	}
	t.apiChar = findCharacteristic(objs, t.devicePath, APICharacteristicUUID)
	antiDoS := findCharacteristic(objs, t.devicePath, AntiDoSCharUUID)
	if t.apiChar == "" || antiDoS == "" {
		return "", errors.Errorf("%s does not look like an API v2 toy", name)
	}

	err = t.conn.Object(BlueZBusName, antiDoS).Call(GattCharacteristic1Interface+".WriteValue", 0,
		[]byte(antiDoSUnlock), map[string]dbus.Variant{"type": dbus.MakeVariant("request")}).Err
	if err != nil {
		return "", errors.Wrap(err, "failed to unlock toy")
	}

	rule := fmt.Sprintf("type='signal',interface='%s',member='PropertiesChanged',path='%s'", PropertiesInterface, t.apiChar)
	if err := t.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
		return "", errors.Wrap(err, "failed to subscribe to notifications")
	}
	t.conn.Signal(t.signals)
	if err := t.conn.Object(BlueZBusName, t.apiChar).Call(GattCharacteristic1Interface+".StartNotify", 0).Err; err != nil {
		return "", errors.Wrap(err, "failed to start notifications")
	}
	fmt.Println("[bluez] connected to", name)
	return name, nil
}

func (t *bleTransport) waitForServices() error {
	dev := t.conn.Object(BlueZBusName, t.devicePath)
	deadline := time.Now().Add(servicesTimeout)
	for time.Now().Before(deadline) {
		v, err := dev.GetProperty(Device1Interface + ".ServicesResolved")
		if err == nil {
			if resolved, ok := v.Value().(bool); ok && resolved {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("timed out waiting for toy services")
}

func findToy(objs managedObjects, want string) (dbus.ObjectPath, string) {
	for path, ifaces := range objs {
		dev, ok := ifaces[Device1Interface]
		if !ok {
			continue
		}
		name, _ := dev["Name"].Value().(string)
		if MatchToyName(want, name) {
			return path, name
		}
	}
	return "", ""
}

func findCharacteristic(objs managedObjects, device dbus.ObjectPath, uuid string) dbus.ObjectPath {
	for path, ifaces := range objs {
		if !strings.HasPrefix(string(path), string(device)+"/") {
			continue
		}
		char, ok := ifaces[GattCharacteristic1Interface]
		if !ok {
			continue
		}
		if u, _ := char["UUID"].Value().(string); strings.EqualFold(u, uuid) {
			return path
		}
	}
	return ""
}

func (t *bleTransport) Write(frame []byte) error {
	return t.conn.Object(BlueZBusName, t.apiChar).Call(GattCharacteristic1Interface+".WriteValue", 0,
		frame, map[string]dbus.Variant{"type": dbus.MakeVariant("command")}).Err
}

func (t *bleTransport) ReadChunk(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case sig, ok := <-t.signals:
			if !ok {
				return nil, errors.New("bus connection closed")
			}
			if value := notificationValue(sig, t.apiChar); value != nil {
				return value, nil
			}
		case <-timer.C:
			return nil, ErrReadTimeout
		}
	}
}

// notificationValue extracts the new characteristic value from a PropertiesChanged signal.
func notificationValue(sig *dbus.Signal, char dbus.ObjectPath) []byte {
	if sig.Path != char || sig.Name != PropertiesChanged || len(sig.Body) < 2 {
		return nil
	}
	if iface, _ := sig.Body[0].(string); iface != GattCharacteristic1Interface {
		return nil
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil
	}
	v, ok := changed["Value"]
	if !ok {
		return nil
	}
	value, _ := v.Value().([]byte)
	return value
}

func (t *bleTransport) Close() error {
	if t.apiChar != "" {
		t.conn.Object(BlueZBusName, t.apiChar).Call(GattCharacteristic1Interface+".StopNotify", 0)
	}
	err := t.conn.Object(BlueZBusName, t.devicePath).Call(Device1Interface+".Disconnect", 0).Err
	t.conn.Close()
	return err
}
