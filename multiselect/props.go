package multiselect

// Properties are presentation attributes forwarded to the remote view as is.
type Properties struct {
	Label        string `json:"label"`
	Placeholder  string `json:"placeholder"`
	Title        string `json:"title"`
	ErrorMessage string `json:"errorMessage"`
	Required     bool   `json:"required"`
	ReadOnly     bool   `json:"readonly"`
	Invalid      bool   `json:"invalid"`
	CompactMode  bool   `json:"compactMode"`
	Ordered      bool   `json:"ordered"`
}

func (m *MultiSelect[T]) Properties() Properties { return m.props }

func (m *MultiSelect[T]) SetProperties(p Properties) { m.props = p }

func (m *MultiSelect[T]) Label() string            { return m.props.Label }
func (m *MultiSelect[T]) SetLabel(s string)        { m.props.Label = s }
func (m *MultiSelect[T]) Placeholder() string      { return m.props.Placeholder }
func (m *MultiSelect[T]) SetPlaceholder(s string)  { m.props.Placeholder = s }
func (m *MultiSelect[T]) ErrorMessage() string     { return m.props.ErrorMessage }
func (m *MultiSelect[T]) SetErrorMessage(s string) { m.props.ErrorMessage = s }
func (m *MultiSelect[T]) IsRequired() bool         { return m.props.Required }
func (m *MultiSelect[T]) SetRequired(b bool)       { m.props.Required = b }
func (m *MultiSelect[T]) IsReadOnly() bool         { return m.props.ReadOnly }
func (m *MultiSelect[T]) SetReadOnly(b bool)       { m.props.ReadOnly = b }
func (m *MultiSelect[T]) IsInvalid() bool          { return m.props.Invalid }
func (m *MultiSelect[T]) SetInvalid(b bool)        { m.props.Invalid = b }
func (m *MultiSelect[T]) IsCompactMode() bool      { return m.props.CompactMode }
func (m *MultiSelect[T]) SetCompactMode(b bool)    { m.props.CompactMode = b }
func (m *MultiSelect[T]) IsOrdered() bool          { return m.props.Ordered }
func (m *MultiSelect[T]) SetOrdered(b bool)        { m.props.Ordered = b }
