package setupc

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/fornellas/vpm/params"
)

var portRecordRegexp = regexp.MustCompile(`^CNC([AB])(\d+)$`)

// ParsePortList parses the output of setupc list. Lines that are not port records are ignored,
// so unexpected output yields fewer pairs instead of an error. Pairs are sorted by number.
// Parsing stops at a line longer than bufio.MaxScanTokenSize.
func ParsePortList(output string) []PortPair {
	portPairs, _ := ParsePortListReader(strings.NewReader(output))
	return portPairs
}

// ParsePortListReader is like ParsePortList, reading from r. It only fails when reading does,
// returning the pairs parsed up to the failure along with the error.
func ParsePortListReader(r io.Reader) ([]PortPair, error) {
	portPairMap := map[int]*PortPair{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "CNC") {
			continue
		}
		fields := strings.Fields(line)
		matches := portRecordRegexp.FindStringSubmatch(fields[0])
		if matches == nil {
			continue
		}
		number, err := strconv.Atoi(matches[2])
		if err != nil {
			continue
		}

		portPair, ok := portPairMap[number]
		if !ok {
			// list output carries no enabled / disabled signal
			newPortPair := NewPortPair(number, PortStatusActive)
			portPair = &newPortPair
			portPairMap[number] = portPair
		}

		port := &portPair.PortA
		if Side(matches[1][0]) == SideB {
			port = &portPair.PortB
		}

		if len(fields) > 1 {
			port.Parameters = params.Parse(strings.Join(fields[1:], " "))
			if portName, ok := port.Parameters.GetString("PortName"); ok {
				port.PortName = portName
			}
		}
	}
	err := scanner.Err()
	if err != nil {
		err = fmt.Errorf("setupc: failed to read port list: %w", err)
	}

	portPairs := make([]PortPair, 0, len(portPairMap))
	for _, portPair := range portPairMap {
		portPairs = append(portPairs, *portPair)
	}
	slices.SortFunc(portPairs, func(a, b PortPair) int {
		return a.Number - b.Number
	})
	return portPairs, err
}
