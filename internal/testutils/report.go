package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ReportNamespace is the namespace of SampleReport.
const ReportNamespace = "http://schemas.microsoft.com/battery/2012"

// SampleReport is a battery report with one battery and four usage entries.
//
// The battery has a health of 90%. The last usage entry has neither Discharge nor Duration.
const SampleReport = `<?xml version="1.0" encoding="utf-8"?>
<BatteryReport xmlns="http://schemas.microsoft.com/battery/2012">
  <ReportInformation>
    <ReportVersion>1</ReportVersion>
    <ReportGuid>{8c1c3f4e-6a7b-4f6e-9a34-2f0c8b0e5d11}</ReportGuid>
    <ScanTime>2024-05-10T10:05:00Z</ScanTime>
    <LocalScanTime>2024-05-10T12:05:00</LocalScanTime>
    <ReportStartTime>2024-04-26T10:05:00Z</ReportStartTime>
    <LocalReportStartTime>2024-04-26T12:05:00</LocalReportStartTime>
    <ReportDuration>P14D</ReportDuration>
    <UtcOffset>PT2H</UtcOffset>
  </ReportInformation>
  <SystemInformation>
    <ComputerName>LAPTOP-42</ComputerName>
    <SystemManufacturer>Contoso</SystemManufacturer>
    <SystemProductName>Book 13</SystemProductName>
    <BIOSDate>03/01/2024</BIOSDate>
    <BIOSVersion>1.18.0</BIOSVersion>
    <OSBuild>22631.3527</OSBuild>
    <PlatformRole>Mobile</PlatformRole>
    <ConnectedStandby>1</ConnectedStandby>
  </SystemInformation>
  <Batteries>
    <Battery>
      <Id>BAT0</Id>
      <Manufacturer>SMP</Manufacturer>
      <SerialNumber>1234</SerialNumber>
      <ManufactureDate>2022-01-15</ManufactureDate>
      <Chemistry>LiP</Chemistry>
      <LongTerm>1</LongTerm>
      <RelativeCapacity>0</RelativeCapacity>
      <DesignCapacity>50000</DesignCapacity>
      <FullChargeCapacity>45000</FullChargeCapacity>
      <CycleCount>120</CycleCount>
    </Battery>
  </Batteries>
  <RecentUsage>
    <UsageEntry Timestamp="2024-05-10T08:00:00Z" LocalTimestamp="2024-05-10T10:00:00" Duration="3600" Ac="1" EntryType="Active" ChargeCapacity="40000" Discharge="0" FullChargeCapacity="45000" IsNextOnBattery="0"/>
    <UsageEntry Timestamp="2024-05-10T09:00:00Z" LocalTimestamp="2024-05-10T11:00:00" Duration="PT30M" Ac="0" EntryType="Active" ChargeCapacity="45000" Discharge="1800" FullChargeCapacity="45000" IsNextOnBattery="1"/>
    <UsageEntry Timestamp="2024-05-10T09:30:00Z" LocalTimestamp="2024-05-10T11:30:00" Duration="1800" Ac="0" EntryType="Active" ChargeCapacity="43200" Discharge="3600" FullChargeCapacity="44900" IsNextOnBattery="1"/>
    <UsageEntry Timestamp="2024-05-10T10:00:00Z" LocalTimestamp="2024-05-10T12:00:00" Ac="0" EntryType="Suspend" ChargeCapacity="39600" FullChargeCapacity="44900"/>
  </RecentUsage>
</BatteryReport>
`

// WriteReport writes content to a file in a temporary directory and returns its path.
func WriteReport(t *testing.T, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "battery-report.xml")
	err := os.WriteFile(p, []byte(content), 0600)
	require.NoError(t, err, "Setup: could not write battery report")
	return p
}
