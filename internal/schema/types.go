package schema

// Object is the tagged union over the routed label set. Exactly one concrete
// type exists per registered label; objects are decoded explicitly at the
// transport boundary rather than inspected by ad hoc field checks.
type Object interface {
	ObjectLabel() Label
}

// Recipe is the structured output for cooking-related prompts.
type Recipe struct {
	Name     string `json:"name"`
	Cuisine  string `json:"cuisine"`
	Servings int    `json:"servings"`

	Ingredients []Ingredient `json:"ingredients"`
	Steps       []string     `json:"steps"`
}

// Ingredient is one entry in a recipe's ingredient list.
type Ingredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

func (Recipe) ObjectLabel() Label { return LabelRecipe }

// Person is the structured output for biography-style prompts.
type Person struct {
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Occupation string   `json:"occupation"`
	Location   string   `json:"location"`
	Hobbies    []string `json:"hobbies"`
}

func (Person) ObjectLabel() Label { return LabelPerson }

// Product is the structured output for product-description prompts.
type Product struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

func (Product) ObjectLabel() Label { return LabelProduct }

// Story is the structured output for creative-writing prompts.
type Story struct {
	Title      string      `json:"title"`
	Genre      string      `json:"genre"`
	Setting    string      `json:"setting"`
	Characters []Character `json:"characters"`
	Plot       string      `json:"plot"`
}

// Character is one entry in a story's character list.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (Story) ObjectLabel() Label { return LabelStory }

// NotificationList is the fixed output of the non-routed generate-object
// endpoint. It goes through the same registry machinery as the routed
// schemas, as a single always-selected entry.
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
}

func (NotificationList) ObjectLabel() Label { return Label("notifications") }

// Notification is one synthetic message in a NotificationList.
type Notification struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	MinutesAgo int    `json:"minutesAgo"`
}
