package dialog

import "strings"

// DirectiveKind enumerates the in-band control messages the router
// recognizes. Directives change routing state or trigger maintenance
// operations; they never become exchanges.
type DirectiveKind int

const (
	DirectiveSwitchModel DirectiveKind = iota
	DirectiveSwitchPersona
	DirectiveReset
	DirectiveExport
)

// Directive is one parsed control message.
type Directive struct {
	Kind DirectiveKind
	Arg  string
}

// Detector decides whether a message is a directive. It is injected so a
// transport can substitute its own command grammar without touching the
// router.
type Detector func(text string) (Directive, bool)

// DefaultDetector recognizes slash commands:
//
//	/model <name>      switch the active backend
//	/persona <name>    switch the active persona
//	/reset             clear stored history
//	/export [format]   export the conversation
func DefaultDetector(text string) (Directive, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return Directive{}, false
	}

	fields := strings.Fields(trimmed)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch strings.ToLower(fields[0]) {
	case "/model":
		return Directive{Kind: DirectiveSwitchModel, Arg: arg}, true
	case "/persona":
		return Directive{Kind: DirectiveSwitchPersona, Arg: arg}, true
	case "/reset":
		return Directive{Kind: DirectiveReset}, true
	case "/export":
		return Directive{Kind: DirectiveExport, Arg: arg}, true
	default:
		return Directive{}, false
	}
}
