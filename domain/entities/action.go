package entities

// ActionKind represents an interaction performed against a located element
type ActionKind string

const (
	ActionClick ActionKind = "click"
	ActionFill  ActionKind = "fill"
	ActionType  ActionKind = "type"
	ActionPress ActionKind = "press"
)

// ElementState is the condition a wait blocks on
type ElementState string

const (
	StatePresent ElementState = "present"
	StateVisible ElementState = "visible"
	StateGone    ElementState = "gone"
)

// ReadTarget selects what a read returns: the text content or one attribute
type ReadTarget struct {
	Attribute string
}

// ReadText reads the element's text content.
func ReadText() ReadTarget {
	return ReadTarget{}
}

// ReadAttribute reads the named attribute.
func ReadAttribute(name string) ReadTarget {
	return ReadTarget{Attribute: name}
}

// IsText reports whether the target is the text content.
func (r ReadTarget) IsText() bool {
	return r.Attribute == ""
}

func (r ReadTarget) String() string {
	if r.IsText() {
		return "text"
	}
	return "attribute(" + r.Attribute + ")"
}
