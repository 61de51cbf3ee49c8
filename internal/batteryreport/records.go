package batteryreport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Field is a named value of a record.
type Field struct {
	Name  string
	Value string
}

// ReportInfo describes the report itself.
type ReportInfo struct {
	ReportGUID           string `json:"ReportGuid"`
	ReportVersion        string `json:"ReportVersion"`
	ScanTime             string `json:"ScanTime"`
	LocalScanTime        string `json:"LocalScanTime"`
	ReportStartTime      string `json:"ReportStartTime"`
	LocalReportStartTime string `json:"LocalReportStartTime"`
	ReportDuration       string `json:"ReportDuration"`
	UtcOffset            string `json:"UtcOffset"`
}

var reportInfoTags = []string{
	"ReportGuid", "ReportVersion", "ScanTime", "LocalScanTime",
	"ReportStartTime", "LocalReportStartTime", "ReportDuration", "UtcOffset",
}

func (r *ReportInfo) values() []*string {
	return []*string{
		&r.ReportGUID, &r.ReportVersion, &r.ScanTime, &r.LocalScanTime,
		&r.ReportStartTime, &r.LocalReportStartTime, &r.ReportDuration, &r.UtcOffset,
	}
}

// Fields returns every field of the record in document order.
func (r ReportInfo) Fields() []Field {
	return fields(reportInfoTags, r.values())
}

// SystemInfo describes the machine the report was generated on.
type SystemInfo struct {
	ComputerName       string `json:"ComputerName"`
	SystemManufacturer string `json:"SystemManufacturer"`
	SystemProductName  string `json:"SystemProductName"`
	BIOSDate           string `json:"BIOSDate"`
	BIOSVersion        string `json:"BIOSVersion"`
	OSBuild            string `json:"OSBuild"`
	PlatformRole       string `json:"PlatformRole"`
	ConnectedStandby   string `json:"ConnectedStandby"`
}

var systemInfoTags = []string{
	"ComputerName", "SystemManufacturer", "SystemProductName", "BIOSDate",
	"BIOSVersion", "OSBuild", "PlatformRole", "ConnectedStandby",
}

func (s *SystemInfo) values() []*string {
	return []*string{
		&s.ComputerName, &s.SystemManufacturer, &s.SystemProductName, &s.BIOSDate,
		&s.BIOSVersion, &s.OSBuild, &s.PlatformRole, &s.ConnectedStandby,
	}
}

// Fields returns every field of the record in document order.
func (s SystemInfo) Fields() []Field {
	return fields(systemInfoTags, s.values())
}

// BatteryInfo describes one physical battery.
// Capacities and cycle count are kept as written in the document.
type BatteryInfo struct {
	ID                 string `json:"Id"`
	Manufacturer       string `json:"Manufacturer"`
	SerialNumber       string `json:"SerialNumber"`
	ManufactureDate    string `json:"ManufactureDate"`
	Chemistry          string `json:"Chemistry"`
	LongTerm           string `json:"LongTerm"`
	RelativeCapacity   string `json:"RelativeCapacity"`
	DesignCapacity     string `json:"DesignCapacity"`
	FullChargeCapacity string `json:"FullChargeCapacity"`
	CycleCount         string `json:"CycleCount"`
}

var batteryTags = []string{
	"Id", "Manufacturer", "SerialNumber", "ManufactureDate", "Chemistry",
	"LongTerm", "RelativeCapacity", "DesignCapacity", "FullChargeCapacity", "CycleCount",
}

func (b *BatteryInfo) values() []*string {
	return []*string{
		&b.ID, &b.Manufacturer, &b.SerialNumber, &b.ManufactureDate, &b.Chemistry,
		&b.LongTerm, &b.RelativeCapacity, &b.DesignCapacity, &b.FullChargeCapacity, &b.CycleCount,
	}
}

// Fields returns every field of the record in document order.
func (b BatteryInfo) Fields() []Field {
	return fields(batteryTags, b.values())
}

func fields(names []string, values []*string) []Field {
	f := make([]Field, 0, len(names))
	for i, n := range names {
		f = append(f, Field{Name: n, Value: *values[i]})
	}
	return f
}

// UsageEntry is one sample of the usage history.
// It only holds the attributes present on its source element, in document order.
type UsageEntry struct {
	attrs []Field
}

// NewUsageEntry returns an entry holding the given attributes.
// A later attribute with the same name replaces the earlier one.
func NewUsageEntry(attrs ...Field) UsageEntry {
	var e UsageEntry
	for _, a := range attrs {
		e.set(a.Name, a.Value)
	}
	return e
}

func (e *UsageEntry) set(name, value string) {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, Field{Name: name, Value: value})
}

// Get returns the value of the named attribute and whether it was present.
func (e UsageEntry) Get(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Fields returns a copy of the attributes of the entry.
func (e UsageEntry) Fields() []Field {
	f := make([]Field, len(e.attrs))
	copy(f, e.attrs)
	return f
}

// Len returns the number of attributes of the entry.
func (e UsageEntry) Len() int {
	return len(e.attrs)
}

// Map returns the attributes of the entry as a map.
func (e UsageEntry) Map() map[string]string {
	m := make(map[string]string, len(e.attrs))
	for _, a := range e.attrs {
		m[a.Name] = a.Value
	}
	return m
}

// MarshalJSON encodes the entry as a JSON object, keeping attribute order.
func (e UsageEntry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range e.attrs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping key order.
func (e *UsageEntry) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("usage entry must be a JSON object")
	}

	e.attrs = nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected usage entry key %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("usage entry attribute %q: %v", key, err)
		}
		e.set(key, value)
	}
	_, err = dec.Token()
	return err
}

// Report holds every record extracted from one document.
type Report struct {
	ReportInfo  ReportInfo    `json:"reportInformation"`
	SystemInfo  SystemInfo    `json:"systemInformation"`
	Batteries   []BatteryInfo `json:"batteries"`
	RecentUsage []UsageEntry  `json:"recentUsage"`
}
