// Package form implements the create/edit dialog used by every resource
// screen: a string draft seeded on open, validated and coerced on submit.
package form

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/thumbnail"
)

// ErrInvalid is returned by Submit when the draft did not validate. The
// per-field messages are available from Errors.
var ErrInvalid = errors.New("form has invalid fields")

// Kind is the input type of a field. It decides validation and coercion.
type Kind int

const (
	Text Kind = iota
	Number
	Integer
	Bool
	Choice
	File
)

// Field describes one input of a dialog.
type Field struct {
	Name  string
	Label string
	Kind  Kind

	Required bool
	// RequiredOnCreate marks files that must be attached for a new record
	// but may be kept as they are when editing.
	RequiredOnCreate bool
	// Message replaces the default "<Label> is required".
	Message string
	// Rules are validator tags checked against non-empty values,
	// e.g. "email" or "semver".
	Rules   string
	Choices []string
	Default string
}

func (f Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Values is the string draft of a dialog, keyed by field name.
type Values map[string]string

// Mode is the state of a dialog.
type Mode int

const (
	Closed Mode = iota
	Create
	Edit
)

func (m Mode) String() string {
	switch m {
	case Create:
		return "create"
	case Edit:
		return "edit"
	}
	return "closed"
}

// Attachment is a file chosen for a file field.
type Attachment struct {
	Name string
	Path string // read at send time when set
	Data []byte
}

// AutoThumbnail captures a thumbnail from the attached video when no
// thumbnail was attached.
type AutoThumbnail struct {
	Video     string
	Thumbnail string
	Extractor thumbnail.Extractor
}

// Check validates relations between fields. It returns messages keyed by
// field name; attached reports the file fields attached in this session.
type Check func(mode Mode, draft Values, attached map[string]bool) map[string]string

// Dialog is one create/edit form.
type Dialog struct {
	fields []Field
	auto   *AutoThumbnail
	cross  Check

	mode   Mode
	id     string
	draft  Values
	files  map[string]Attachment
	errors map[string]string
}

// New returns a closed dialog over fields.
func New(fields []Field) *Dialog {
	return &Dialog{fields: fields}
}

// WithAutoThumbnail enables thumbnail capture on submit.
func (d *Dialog) WithAutoThumbnail(a AutoThumbnail) *Dialog {
	d.auto = &a
	return d
}

// WithCheck adds a cross-field validation run after the per-field rules.
func (d *Dialog) WithCheck(c Check) *Dialog {
	d.cross = c
	return d
}

// Fields returns the field definitions.
func (d *Dialog) Fields() []Field {
	return d.fields
}

// OpenCreate opens the dialog for a new record. overrides replace field
// defaults, e.g. a suggested episode number.
func (d *Dialog) OpenCreate(overrides Values) {
	seed := Values{}
	for _, f := range d.fields {
		seed[f.Name] = f.Default
	}
	for k, v := range overrides {
		seed[k] = v
	}
	d.open(Create, "", seed)
}

// OpenEdit opens the dialog on an existing record.
func (d *Dialog) OpenEdit(id string, values Values) {
	seed := Values{}
	for _, f := range d.fields {
		seed[f.Name] = values[f.Name]
	}
	d.open(Edit, id, seed)
}

// open recomputes everything from the seed; nothing from a previous
// session survives.
func (d *Dialog) open(mode Mode, id string, seed Values) {
	d.mode = mode
	d.id = id
	d.draft = seed
	d.files = make(map[string]Attachment)
	d.errors = make(map[string]string)
}

// Close discards the draft.
func (d *Dialog) Close() {
	d.mode = Closed
	d.id = ""
	d.draft = nil
	d.files = nil
	d.errors = nil
}

func (d *Dialog) Mode() Mode   { return d.mode }
func (d *Dialog) ID() string   { return d.id }
func (d *Dialog) IsOpen() bool { return d.mode != Closed }

// Draft returns a copy of the current draft.
func (d *Dialog) Draft() Values {
	out := make(Values, len(d.draft))
	for k, v := range d.draft {
		out[k] = v
	}
	return out
}

// Errors returns a copy of the per-field errors of the last validation.
func (d *Dialog) Errors() map[string]string {
	out := make(map[string]string, len(d.errors))
	for k, v := range d.errors {
		out[k] = v
	}
	return out
}

// Attachments returns the files attached in this session.
func (d *Dialog) Attachments() map[string]Attachment {
	out := make(map[string]Attachment, len(d.files))
	for k, v := range d.files {
		out[k] = v
	}
	return out
}

func (d *Dialog) field(name string) (Field, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Set changes one draft value and clears that field's error.
func (d *Dialog) Set(name, value string) error {
	if !d.IsOpen() {
		return fmt.Errorf("dialog is not open")
	}
	f, ok := d.field(name)
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	if f.Kind == File {
		return d.Attach(name, value)
	}
	d.draft[name] = value
	delete(d.errors, name)
	return nil
}

// Attach selects the file at path for a file field.
func (d *Dialog) Attach(name, path string) error {
	if !d.IsOpen() {
		return fmt.Errorf("dialog is not open")
	}
	f, ok := d.field(name)
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	if f.Kind != File {
		return fmt.Errorf("field %q is not a file field", name)
	}
	d.files[name] = Attachment{Name: filepath.Base(path), Path: path}
	delete(d.errors, name)
	return nil
}

// AttachBytes selects in-memory content for a file field.
func (d *Dialog) AttachBytes(name, filename string, data []byte) error {
	if err := d.Attach(name, filename); err != nil {
		return err
	}
	d.files[name] = Attachment{Name: filename, Data: data}
	return nil
}

// Validate checks the draft and records per-field errors.
func (d *Dialog) Validate() bool {
	d.errors = make(map[string]string)
	for _, f := range d.fields {
		if msg := d.check(f); msg != "" {
			d.errors[f.Name] = msg
		}
	}
	if d.cross != nil {
		attached := make(map[string]bool, len(d.files))
		for name := range d.files {
			attached[name] = true
		}
		for name, msg := range d.cross(d.mode, d.Draft(), attached) {
			if _, ok := d.errors[name]; !ok && msg != "" {
				d.errors[name] = msg
			}
		}
	}
	return len(d.errors) == 0
}

func (d *Dialog) check(f Field) string {
	value := strings.TrimSpace(d.draft[f.Name])
	required := f.Message
	if required == "" {
		required = f.label() + " is required"
	}

	if f.Kind == File {
		_, attached := d.files[f.Name]
		if attached {
			return ""
		}
		if f.Required || (f.RequiredOnCreate && d.mode == Create) {
			if d.mode == Edit && value != "" {
				return ""
			}
			return required
		}
		return ""
	}

	if value == "" {
		if f.Required {
			return required
		}
		return ""
	}

	switch f.Kind {
	case Number:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || validate.Var(n, "gte=0") != nil {
			return f.label() + " must be a non-negative number"
		}
		return ruleMessage(f, n)
	case Integer:
		n, err := strconv.Atoi(value)
		if err != nil || validate.Var(n, "gte=0") != nil {
			return f.label() + " must be a non-negative whole number"
		}
		return ruleMessage(f, n)
	case Bool:
		if _, err := strconv.ParseBool(value); err != nil {
			return f.label() + " must be true or false"
		}
	case Choice:
		for _, c := range f.Choices {
			if c == value {
				return ruleMessage(f, value)
			}
		}
		return fmt.Sprintf("%s must be one of %s", f.label(), strings.Join(f.Choices, ", "))
	}
	return ruleMessage(f, value)
}

// Submission is a validated, coerced draft.
type Submission struct {
	Mode   Mode
	ID     string
	Values map[string]any
	Files  map[string]Attachment
}

// JSON returns the values as a JSON body. Files are not included.
func (s Submission) JSON() api.JSON {
	return api.JSON{Value: s.Values}
}

// Form returns the values and files as a multipart body.
func (s Submission) Form() *api.Form {
	form := api.NewForm()
	for k, v := range s.Values {
		form.Set(k, formatValue(v))
	}
	names := make([]string, 0, len(s.Files))
	for name := range s.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := s.Files[name]
		if a.Path != "" {
			form.AddFile(name, a.Path)
		} else {
			form.AddFileBytes(name, a.Name, a.Data)
		}
	}
	return form
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// Coerce converts the draft into typed values. It assumes the draft is valid.
func (d *Dialog) Coerce() map[string]any {
	out := make(map[string]any, len(d.fields))
	for _, f := range d.fields {
		raw := strings.TrimSpace(d.draft[f.Name])
		switch f.Kind {
		case File:
			continue
		case Number:
			n, _ := strconv.ParseFloat(raw, 64)
			out[f.Name] = n
		case Integer:
			n, _ := strconv.Atoi(raw)
			out[f.Name] = n
		case Bool:
			b, _ := strconv.ParseBool(raw)
			out[f.Name] = b
		default:
			out[f.Name] = d.draft[f.Name]
		}
	}
	return out
}

// Submit validates the draft and, when it is valid, hands the coerced
// submission to save. The dialog closes once save succeeds; on any error
// it stays open with the draft intact.
func (d *Dialog) Submit(ctx context.Context, save func(ctx context.Context, s Submission) error) error {
	if !d.IsOpen() {
		return fmt.Errorf("dialog is not open")
	}
	if !d.Validate() {
		return ErrInvalid
	}
	d.captureThumbnail(ctx)

	s := Submission{Mode: d.mode, ID: d.id, Values: d.Coerce(), Files: d.Attachments()}
	if err := save(ctx, s); err != nil {
		return err
	}
	d.Close()
	return nil
}

// captureThumbnail fills the thumbnail from the attached video. Failures
// only cost the thumbnail.
func (d *Dialog) captureThumbnail(ctx context.Context) {
	a := d.auto
	if a == nil || a.Extractor == nil {
		return
	}
	video, ok := d.files[a.Video]
	if !ok || video.Path == "" {
		return
	}
	if _, ok := d.files[a.Thumbnail]; ok {
		return
	}
	data, err := a.Extractor.Extract(ctx, video.Path)
	if err != nil {
		log.Printf("Warning: thumbnail capture failed for %s: %v", video.Name, err)
		return
	}
	d.files[a.Thumbnail] = Attachment{Name: "thumb.jpg", Data: data}
}
