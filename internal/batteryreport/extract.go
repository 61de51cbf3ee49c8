package batteryreport

import (
	"encoding/xml"
)

// ExtractReportInfo returns the report information found under root.
// A missing section returns the zero record and a missing field is left empty.
func ExtractReportInfo(root *Node, ns string) ReportInfo {
	var r ReportInfo
	fill(root.Child(ns, "ReportInformation"), ns, reportInfoTags, r.values())
	return r
}

// ExtractSystemInfo returns the system information found under root.
// A missing section returns the zero record and a missing field is left empty.
func ExtractSystemInfo(root *Node, ns string) SystemInfo {
	var s SystemInfo
	fill(root.Child(ns, "SystemInformation"), ns, systemInfoTags, s.values())
	return s
}

// ExtractBatteries returns one record per battery, in document order.
// It never returns nil.
func ExtractBatteries(root *Node, ns string) []BatteryInfo {
	nodes := root.Child(ns, "Batteries").ChildrenNamed(ns, "Battery")
	batteries := make([]BatteryInfo, 0, len(nodes))
	for _, n := range nodes {
		var b BatteryInfo
		fill(n, ns, batteryTags, b.values())
		batteries = append(batteries, b)
	}
	return batteries
}

// ExtractUsageEntries returns one entry per usage sample, in document order.
// Attributes are copied as is. It never returns nil.
func ExtractUsageEntries(root *Node, ns string) []UsageEntry {
	nodes := root.Child(ns, "RecentUsage").ChildrenNamed(ns, "UsageEntry")
	entries := make([]UsageEntry, 0, len(nodes))
	for _, n := range nodes {
		var e UsageEntry
		for _, a := range n.Attrs {
			if isNamespaceDecl(a.Name) {
				continue
			}
			e.set(attrName(a.Name), a.Value)
		}
		entries = append(entries, e)
	}
	return entries
}

// Extract returns all the records found under root.
func Extract(root *Node, ns string) Report {
	return Report{
		ReportInfo:  ExtractReportInfo(root, ns),
		SystemInfo:  ExtractSystemInfo(root, ns),
		Batteries:   ExtractBatteries(root, ns),
		RecentUsage: ExtractUsageEntries(root, ns),
	}
}

// fill sets each value to the text of the matching child of section.
func fill(section *Node, ns string, tags []string, values []*string) {
	if section == nil {
		return
	}
	for i, tag := range tags {
		*values[i] = section.ChildText(ns, tag)
	}
}

func isNamespaceDecl(n xml.Name) bool {
	return n.Space == "xmlns" || (n.Space == "" && n.Local == "xmlns")
}

// attrName returns the local name of unqualified attributes and {space}local otherwise.
func attrName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}
