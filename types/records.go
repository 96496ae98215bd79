package types

// Resource is a shared community resource offer.
type Resource struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Location   string `json:"location"`
	Contact    string `json:"contact"`
	Notes      string `json:"notes"`
	DateShared string `json:"dateShared"`
	Username   string `json:"username"`
}

// Request is a help request. Urgency is one of "critical", "urgent",
// "moderate" or "low"; listings order requests by that tier.
type Request struct {
	ID            string `json:"id"`
	Need          string `json:"need"`
	Urgency       string `json:"urgency"`
	Location      string `json:"location"`
	Contact       string `json:"contact"`
	Details       string `json:"details"`
	DateRequested string `json:"dateRequested"`
	Username      string `json:"username"`
}

// Kitchen is a community kitchen registration.
type Kitchen struct {
	ID             string `json:"id"`
	Location       string `json:"location"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Capacity       int    `json:"capacity"`
	Menu           string `json:"menu"`
	DateRegistered string `json:"dateRegistered"`
	Username       string `json:"username"`
}

// Transport is a transport offer.
type Transport struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	From        string `json:"from"`
	To          string `json:"to"`
	When        string `json:"when"`
	Seats       int    `json:"seats"`
	Contact     string `json:"contact"`
	DateOffered string `json:"dateOffered"`
	Username    string `json:"username"`
}
