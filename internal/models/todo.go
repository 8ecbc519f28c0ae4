package models

// Record type tags of the built-in record types.
const (
	TypeTodo = "todo"
	TypeNote = "note"
)

// Todo is a task item.
type Todo struct {
	ID       string   `json:"id"`       // ID уникальный идентификатор (UUID)
	Title    string   `json:"title"`    // Title заголовок задачи
	Tags     []string `json:"tags"`     // Tags теги для группировки
	Priority int      `json:"priority"` // Priority приоритет, 0 = без приоритета
	Done     bool     `json:"done"`     // Done флаг выполнения
}

func (t Todo) RecordID() string   { return t.ID }
func (t Todo) RecordType() string { return TypeTodo }

// Note is a free-form text note.
type Note struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

func (n Note) RecordID() string   { return n.ID }
func (n Note) RecordType() string { return TypeNote }

// DefaultRegistry returns a registry with the built-in record types.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	Register[Todo](reg, "/api/v1/todo")
	Register[Note](reg, "/api/v1/note")
	return reg
}
