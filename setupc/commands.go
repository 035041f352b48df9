// Package setupc models the com0com setupc command line tool: its argument grammar, its domain
// objects and the parsing of its output.
package setupc

import (
	"fmt"
	"strconv"
)

// Side of a port pair.
type Side byte

const (
	SideA Side = 'A'
	SideB Side = 'B'
)

// PortIdentifier returns the setupc identifier for one side of a pair, eg: CNCA0.
func PortIdentifier(side Side, number int) string {
	return fmt.Sprintf("CNC%c%d", side, number)
}

// Command words accepted by setupc.
const (
	CommandInstall      = "install"
	CommandRemove       = "remove"
	CommandChange       = "change"
	CommandList         = "list"
	CommandPreinstall   = "preinstall"
	CommandUpdate       = "update"
	CommandReload       = "reload"
	CommandUninstall    = "uninstall"
	CommandEnable       = "enable"
	CommandDisable      = "disable"
	CommandInfClean     = "infclean"
	CommandListFNames   = "listfnames"
	CommandBusyNames    = "busynames"
	CommandUpdateFNames = "updatefnames"
)

// InstallArgs returns arguments for installing a pair. When number is nil, setupc picks the next
// free pair number.
func InstallArgs(number *int, paramsA, paramsB string) []string {
	if number != nil {
		return []string{CommandInstall, strconv.Itoa(*number), paramsA, paramsB}
	}
	return []string{CommandInstall, paramsA, paramsB}
}

func RemoveArgs(number int) []string {
	return []string{CommandRemove, strconv.Itoa(number)}
}

func ChangeArgs(portID, parameters string) []string {
	return []string{CommandChange, portID, parameters}
}

func ListArgs() []string {
	return []string{CommandList}
}

func EnableAllArgs() []string {
	return []string{CommandEnable, "all"}
}

func DisableAllArgs() []string {
	return []string{CommandDisable, "all"}
}

func BusyNamesArgs(pattern string) []string {
	return []string{CommandBusyNames, pattern}
}
