package chat

// Messenger is the outbound transport adapter.
// The engine never formats platform payloads; it only calls these methods.
type Messenger interface {
	SendText(to, body string) error
	SendButtons(to, body string, buttons []Button, frame Frame) error
	SendList(to, body, buttonLabel string, sections []Section, frame Frame) error
	SendImage(to, mediaURL, caption string) error
	SendLocation(to string, loc Location, name, address string) error
}

// MaxButtons is the number of reply buttons a single message can carry.
const MaxButtons = 3

// Button is a reply button. ID is a selection payload built with Selection.String.
type Button struct {
	ID    string
	Title string
}

// Row is an entry of a list message.
type Row struct {
	ID          string
	Title       string
	Description string
}

// Section groups list rows under a title.
type Section struct {
	Title string
	Rows  []Row
}

// Frame holds the optional header and footer of interactive messages.
type Frame struct {
	Header string
	Footer string
}

// Location is a geographic point.
type Location struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	Name      string  `json:"name,omitempty" bson:"name,omitempty"`
	Address   string  `json:"address,omitempty" bson:"address,omitempty"`
}
