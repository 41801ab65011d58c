package plugin

// Event names the host pipeline stage a module runs in
type Event string

const (
	EventDay      Event = "day"
	EventNight    Event = "night"
	EventPeriodic Event = "periodic"
)

// FieldType selects the host UI control for an argument
type FieldType string

const (
	FieldImage    FieldType = "image"
	FieldSpinner  FieldType = "spinner"
	FieldCheckbox FieldType = "checkbox"
	FieldSelect   FieldType = "select"
)

// FieldSpec describes the control used to edit one argument
type FieldSpec struct {
	FieldType FieldType `json:"fieldtype"`
	Min       *int      `json:"min,omitempty"`
	Max       *int      `json:"max,omitempty"`
	Step      *int      `json:"step,omitempty"`
	Values    string    `json:"values,omitempty"`
}

// ArgumentDetail documents one module argument for the host UI
type ArgumentDetail struct {
	Required    bool       `json:"required,string"`
	Description string     `json:"description"`
	Help        string     `json:"help"`
	Type        *FieldSpec `json:"type,omitempty"`
}

// Metadata is the self-description a module hands to the host
type Metadata struct {
	Name            string                    `json:"name"`
	Description     string                    `json:"description"`
	Module          string                    `json:"module"`
	Events          []Event                   `json:"events"`
	Experimental    bool                      `json:"experimental,string"`
	Arguments       map[string]any            `json:"arguments"`
	ArgumentDetails map[string]ArgumentDetail `json:"argumentdetails"`
}

// Spinner is a numeric field with inclusive bounds
func Spinner(min, max, step int) *FieldSpec {
	return &FieldSpec{FieldType: FieldSpinner, Min: &min, Max: &max, Step: &step}
}

// Select is a drop-down over comma separated values
func Select(values string) *FieldSpec {
	return &FieldSpec{FieldType: FieldSelect, Values: values}
}

// Checkbox is a boolean toggle
func Checkbox() *FieldSpec {
	return &FieldSpec{FieldType: FieldCheckbox}
}

// ImageField picks a file or a region on an image
func ImageField() *FieldSpec {
	return &FieldSpec{FieldType: FieldImage}
}

// Supports reports whether the module registered for event
func (m Metadata) Supports(event Event) bool {
	for _, e := range m.Events {
		if e == event {
			return true
		}
	}
	return false
}
