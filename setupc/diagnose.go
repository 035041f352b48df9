package setupc

import (
	"regexp"
	"slices"
)

type DiagnosisCategory string

const (
	DiagnosisCategoryDriver        DiagnosisCategory = "driver"
	DiagnosisCategorySetupc        DiagnosisCategory = "setupc"
	DiagnosisCategoryPermission    DiagnosisCategory = "permission"
	DiagnosisCategoryConfiguration DiagnosisCategory = "configuration"
	DiagnosisCategorySystem        DiagnosisCategory = "system"
	DiagnosisCategoryValidation    DiagnosisCategory = "validation"
)

type DiagnosisSeverity string

const (
	DiagnosisSeverityInfo     DiagnosisSeverity = "info"
	DiagnosisSeverityWarning  DiagnosisSeverity = "warning"
	DiagnosisSeverityError    DiagnosisSeverity = "error"
	DiagnosisSeverityCritical DiagnosisSeverity = "critical"
)

// Solution is a suggested remedy for a failure.
type Solution struct {
	Title       string
	Description string
	URL         string
}

// Diagnosis explains a failure message in user terms.
type Diagnosis struct {
	Category  DiagnosisCategory
	Severity  DiagnosisSeverity
	Title     string
	Message   string
	Details   string
	Solutions []Solution
}

const com0comURL = "https://sourceforge.net/projects/com0com/"

type diagnosisRule struct {
	regexp    *regexp.Regexp
	diagnosis Diagnosis
}

// Evaluated in order, first match wins.
var diagnosisRules = []diagnosisRule{
	{
		regexp.MustCompile(`(?i)access\s+(is\s+)?denied`),
		Diagnosis{
			Category: DiagnosisCategoryPermission,
			Severity: DiagnosisSeverityError,
			Title:    "Permission Denied",
			Message:  "The application doesn't have permission to perform this operation.",
			Solutions: []Solution{
				{Title: "Run as Administrator", Description: "Run the command from an elevated (administrator) prompt."},
				{Title: "Check User Account Control", Description: "Make sure UAC is not blocking driver management."},
			},
		},
	},
	{
		regexp.MustCompile(`(?i)driver.*not.*installed`),
		Diagnosis{
			Category: DiagnosisCategoryDriver,
			Severity: DiagnosisSeverityCritical,
			Title:    "Driver Not Installed",
			Message:  "The com0com virtual serial port driver is not installed on this system.",
			Solutions: []Solution{
				{Title: "Install Driver", Description: "Download and install the com0com driver package.", URL: com0comURL},
				{Title: "Preinstall Driver", Description: "Run \"vpm driver preinstall\"."},
			},
		},
	},
	{
		regexp.MustCompile(`(?i)setupc(\.exe)?.*not found|executable file not found`),
		Diagnosis{
			Category: DiagnosisCategorySetupc,
			Severity: DiagnosisSeverityError,
			Title:    "setupc.exe Not Found",
			Message:  "The setupc.exe command-line tool could not be found or executed.",
			Solutions: []Solution{
				{Title: "Install com0com", Description: "Download and install com0com.", URL: com0comURL},
				{Title: "Specify Path Manually", Description: "Pass --setupc-path or run \"vpm config set setupc_path <path>\"."},
				{Title: "Detect Installation", Description: "Run \"vpm config detect\" to search the standard install locations."},
			},
		},
	},
	{
		regexp.MustCompile(`(?i)port.*already.*exists`),
		Diagnosis{
			Category: DiagnosisCategoryValidation,
			Severity: DiagnosisSeverityWarning,
			Title:    "Port Already Exists",
			Message:  "The specified port number or name is already in use.",
			Solutions: []Solution{
				{Title: "Use Different Port", Description: "Try a different port number or let setupc assign one."},
				{Title: "Remove Existing Port", Description: "Remove the existing port pair if it's no longer needed."},
			},
		},
	},
	{
		regexp.MustCompile(`(?i)timed?\s*out`),
		Diagnosis{
			Category: DiagnosisCategorySystem,
			Severity: DiagnosisSeverityWarning,
			Title:    "Operation Timed Out",
			Message:  "The operation took too long to complete and was cancelled.",
			Solutions: []Solution{
				{Title: "Increase Timeout", Description: "Pass --timeout or run \"vpm config set command_timeout <seconds>\"."},
				{Title: "Check System Load", Description: "Try again when the system is less busy."},
			},
		},
	},
	{
		regexp.MustCompile(`(?i)invalid.*parameter`),
		Diagnosis{
			Category: DiagnosisCategoryValidation,
			Severity: DiagnosisSeverityError,
			Title:    "Invalid Parameter",
			Message:  "One or more parameters have invalid values.",
			Solutions: []Solution{
				{Title: "Check Parameter Format", Description: "Parameters are comma separated key=value, eg: PortName=COM8,EmuBR=yes."},
				{Title: "Use Valid Values", Description: "Booleans are 'yes' or 'no', and port names look like COM<number>."},
			},
		},
	},
	{
		regexp.MustCompile(`(?i)busy`),
		Diagnosis{
			Category: DiagnosisCategorySystem,
			Severity: DiagnosisSeverityWarning,
			Title:    "Port Busy",
			Message:  "The port is currently in use by another application.",
			Solutions: []Solution{
				{Title: "Close Applications", Description: "Close applications that might be using virtual serial ports."},
				{Title: "Wait and Retry", Description: "Wait a moment and try the operation again."},
			},
		},
	},
}

// Diagnose classifies a failure message.
func Diagnose(message string) Diagnosis {
	for _, rule := range diagnosisRules {
		if rule.regexp.MatchString(message) {
			diagnosis := rule.diagnosis
			diagnosis.Solutions = slices.Clone(diagnosis.Solutions)
			diagnosis.Details = message
			return diagnosis
		}
	}
	return Diagnosis{
		Category: DiagnosisCategorySystem,
		Severity: DiagnosisSeverityError,
		Title:    "Unexpected Error",
		Message:  "An unexpected error occurred.",
		Details:  message,
		Solutions: []Solution{
			{Title: "Check Logs", Description: "Re-run with debug logging for more detailed information."},
		},
	}
}
