package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Front-end
	SynInfo            Code = 2000
	SynUnexpectedToken Code = 2001

	// Semantic analysis
	SemaInfo                Code = 3000
	SemaError               Code = 3001
	SemaDuplicateSymbol     Code = 3002
	SemaScopeMismatch       Code = 3003
	SemaUseBeforeDeclare    Code = 3004
	SemaAssignToConst       Code = 3005
	SemaImplicitGlobal      Code = 3006
	SemaShadowSymbol        Code = 3007
	SemaDuplicateParameter  Code = 3008
	SemaInvalidAssignTarget Code = 3009

	// HIR construction
	HirInfo            Code = 4000
	HirUnsupported     Code = 4001
	HirInvalidSyntax   Code = 4002
	HirBreakOutside    Code = 4003
	HirContinueOutside Code = 4004

	// Memoization passes
	MemoInfo             Code = 5000
	MemoEscapingLambda   Code = 5001
	MemoMutableCapture   Code = 5002
	MemoImpureCallback   Code = 5003
	MemoNotInlined       Code = 5004
	MemoNonLocalCallback Code = 5005

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:             "Unknown error",
	SynInfo:                 "Syntax information",
	SynUnexpectedToken:      "Unexpected token",
	SemaInfo:                "Semantic information",
	SemaError:               "Semantic error",
	SemaDuplicateSymbol:     "Duplicate declaration",
	SemaScopeMismatch:       "Scope stack mismatch",
	SemaUseBeforeDeclare:    "Use before declaration",
	SemaAssignToConst:       "Assignment to constant",
	SemaImplicitGlobal:      "Assignment to undeclared variable",
	SemaShadowSymbol:        "Shadowed declaration",
	SemaDuplicateParameter:  "Duplicate parameter name",
	SemaInvalidAssignTarget: "Invalid assignment target",
	HirInfo:                 "HIR information",
	HirUnsupported:          "Unsupported syntax",
	HirInvalidSyntax:        "Invalid syntax",
	HirBreakOutside:         "break outside of loop or switch",
	HirContinueOutside:      "continue outside of loop",
	MemoInfo:                "Memoization information",
	MemoEscapingLambda:      "Memoization callback escapes",
	MemoMutableCapture:      "Memoization callback captures a reassigned variable",
	MemoImpureCallback:      "Memoization callback has side effects",
	MemoNotInlined:          "Memoization call left in place",
	MemoNonLocalCallback:    "Memoization callback is not a local function",
	ObsInfo:                 "Observability information",
	ObsTimings:              "Pipeline timings",
}

// ID returns the stable string form, e.g. "SEM3004".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("HIR%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("MEM%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	if d, ok := codeDescription[c]; ok {
		return d
	}
	return codeDescription[UnknownCode]
}

func (c Code) String() string {
	return c.ID()
}
