package scraper

import (
	"fmt"

	"telesheet/internal/extractor"
)

// Fields holds the locator chain for every value read off the dashboard.
type Fields struct {
	NodeCount           extractor.Chain
	SubspaceNodeCount   extractor.Chain
	SpaceAcresNodeCount extractor.Chain
	LinuxNodeCount      extractor.Chain
	WindowsNodeCount    extractor.Chain
	MacOSNodeCount      extractor.Chain
}

const (
	statsTable = "#root > div > div.Chain > div.Chain-content-container > div > div > div:nth-child(%d) > table > tbody > tr:nth-child(%d) > td.Stats-count"
	implRow    = "div.Chain-content-container table tbody tr:nth-child(%d) td.Stats-count"
	osRow      = "div.Chain-content-container > div > div > div:nth-child(3) > table > tbody > tr:nth-child(%d) > td.Stats-count"
	statsXPath = `//*[@id="root"]/div/div[2]/div[2]/div/div/div[%d]/table/tbody/tr[%d]/td[2]`
	labelXPath = `//tr[td[1][contains(normalize-space(.), "%s")]]/td[2]`
)

// DefaultFields returns the chains for the Substrate telemetry dashboard.
// Positional locators come first; the last entry of each table chain keys off
// the row label and survives rows being reordered.
func DefaultFields() Fields {
	return Fields{
		NodeCount: extractor.Chain{
			extractor.CSS(".Chains-chain-selected .Chains-node-count"),
			extractor.XPath(`//div[contains(@class,"Chains-chain-selected")]//*[contains(@class,"Chains-node-count")]`),
		},
		SubspaceNodeCount:   implementationChain(1, "Subspace"),
		SpaceAcresNodeCount: implementationChain(2, "Space Acres"),
		LinuxNodeCount:      osChain(1, "Linux"),
		WindowsNodeCount:    osChain(2, "Windows"),
		MacOSNodeCount:      osChain(3, "Mac"),
	}
}

// implementationChain locates a row of the node implementation table.
func implementationChain(row int, label string) extractor.Chain {
	return extractor.Chain{
		extractor.CSS(fmt.Sprintf(statsTable, 2, row)),
		extractor.CSS(fmt.Sprintf(implRow, row)),
		extractor.XPath(fmt.Sprintf(statsXPath, 2, row)),
		extractor.XPath(fmt.Sprintf(labelXPath, label)),
	}
}

// osChain locates a row of the operating system table.
func osChain(row int, label string) extractor.Chain {
	return extractor.Chain{
		extractor.XPath(fmt.Sprintf(statsXPath, 3, row)),
		extractor.CSS(fmt.Sprintf(osRow, row)),
		extractor.XPath(fmt.Sprintf(labelXPath, label)),
	}
}

type namedChain struct {
	name  string
	chain extractor.Chain
	dst   **int
}

func (f Fields) bind(s *Stats) []namedChain {
	return []namedChain{
		{"nodeCount", f.NodeCount, &s.NodeCount},
		{"subspaceNodeCount", f.SubspaceNodeCount, &s.SubspaceNodeCount},
		{"spaceAcresNodeCount", f.SpaceAcresNodeCount, &s.SpaceAcresNodeCount},
		{"linuxNodeCount", f.LinuxNodeCount, &s.LinuxNodeCount},
		{"windowsNodeCount", f.WindowsNodeCount, &s.WindowsNodeCount},
		{"macosNodeCount", f.MacOSNodeCount, &s.MacOSNodeCount},
	}
}
