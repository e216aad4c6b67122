package structured

import (
	"fmt"
	"reflect"
	"strings"
)

// SchemaPrompt creates an instruction prompt for producing a value of type T.
// Struct fields are described by their yaml (preferred) or json tags and
// their description tag:
//
//	Name string `yaml:"name" description:"Full name of the person"`
func SchemaPrompt[T any]() string {
	t := typeOf[T]()
	if t == nil {
		return "Please format the output as valid YAML."
	}
	if t.Kind() != reflect.Struct {
		return fmt.Sprintf("Please format the output as a valid %s value.", t.String())
	}

	var b strings.Builder
	b.WriteString("Please analyze the provided data and extract information in the following structured format:\n\n")

	if hasYamlTags(t) {
		b.WriteString("Output the result in YAML format with the following structure:\n\n```yaml\n")
		writeYamlStructure(t, &b, 0)
		b.WriteString("```\n\n")
	} else {
		b.WriteString("Output the result in JSON format with the following structure:\n\n```json\n")
		writeJSONStructure(t, &b, 0)
		b.WriteString("\n```\n\n")
	}

	b.WriteString("Field descriptions:\n")
	writeFieldDescriptions(t, &b, "")
	b.WriteString("\nEnsure all fields are properly filled based on the available data. " +
		"If a field cannot be determined from the data, use appropriate default values or leave empty as applicable.")
	return b.String()
}

// ValidateSchema reports whether T can be described by SchemaPrompt.
func ValidateSchema[T any]() error {
	t := typeOf[T]()
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("type %v is not a struct", t)
	}
	return validateStructFields(t, "")
}

func typeOf[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return nil
	}
	return t
}

// elem unwraps pointers, and slices of structs, to the type that gets a
// nested description.
func elem(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func hasYamlTags(t reflect.Type) bool {
	for i := range t.NumField() {
		field := t.Field(i)
		if _, ok := field.Tag.Lookup("yaml"); ok {
			return true
		}
		if ft := elem(field.Type); ft.Kind() == reflect.Struct && hasYamlTags(ft) {
			return true
		}
	}
	return false
}

func writeYamlStructure(t reflect.Type, b *strings.Builder, indent int) {
	pad := strings.Repeat("  ", indent)
	for i := range t.NumField() {
		field := t.Field(i)
		name := tagName(field, "yaml", strings.ToLower(field.Name))
		if !field.IsExported() || name == "-" {
			continue
		}
		fmt.Fprintf(b, "%s%s: ", pad, name)

		ft := elem(field.Type)
		switch ft.Kind() {
		case reflect.Struct:
			b.WriteString("\n")
			writeYamlStructure(ft, b, indent+1)
		case reflect.Slice:
			et := elem(ft.Elem())
			if et.Kind() == reflect.Struct {
				fmt.Fprintf(b, "\n%s  -\n", pad)
				writeYamlStructure(et, b, indent+2)
			} else {
				fmt.Fprintf(b, "[] # array of %s\n", et.Kind())
			}
		case reflect.Map:
			b.WriteString("{} # map\n")
		default:
			fmt.Fprintf(b, "\"\" # %s\n", ft.Kind())
		}
	}
}

func writeJSONStructure(t reflect.Type, b *strings.Builder, indent int) {
	pad := strings.Repeat("  ", indent)
	b.WriteString("{\n")

	count := 0
	for i := range t.NumField() {
		field := t.Field(i)
		name := tagName(field, "json", field.Name)
		if !field.IsExported() || name == "-" {
			continue
		}
		if count > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(b, "%s  %q: ", pad, name)

		ft := elem(field.Type)
		switch ft.Kind() {
		case reflect.Struct:
			writeJSONStructure(ft, b, indent+1)
		case reflect.Slice:
			et := elem(ft.Elem())
			if et.Kind() == reflect.Struct {
				fmt.Fprintf(b, "[\n%s    ", pad)
				writeJSONStructure(et, b, indent+2)
				fmt.Fprintf(b, "\n%s  ]", pad)
			} else {
				b.WriteString("[]")
			}
		case reflect.String:
			b.WriteString(`""`)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			b.WriteString("0")
		case reflect.Float32, reflect.Float64:
			b.WriteString("0.0")
		case reflect.Bool:
			b.WriteString("false")
		case reflect.Map:
			b.WriteString("{}")
		default:
			b.WriteString("null")
		}
		count++
	}

	fmt.Fprintf(b, "\n%s}", pad)
}

func writeFieldDescriptions(t reflect.Type, b *strings.Builder, prefix string) {
	for i := range t.NumField() {
		field := t.Field(i)
		name := displayName(field)
		if !field.IsExported() || name == "-" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		description := field.Tag.Get("description")
		if description == "" {
			description = "Field of type " + field.Type.String()
		}
		fmt.Fprintf(b, "- %s: %s\n", name, description)

		ft := elem(field.Type)
		switch ft.Kind() {
		case reflect.Struct:
			writeFieldDescriptions(ft, b, name)
		case reflect.Slice:
			if et := elem(ft.Elem()); et.Kind() == reflect.Struct {
				writeFieldDescriptions(et, b, name+"[]")
			}
		}
	}
}

// tagName returns the name part of the key tag, or fallback when it is unset.
func tagName(field reflect.StructField, key, fallback string) string {
	name, _, _ := strings.Cut(field.Tag.Get(key), ",")
	if name == "" {
		return fallback
	}
	return name
}

// displayName prefers the yaml tag, then the json tag, then the field name.
func displayName(field reflect.StructField) string {
	return tagName(field, "yaml", tagName(field, "json", field.Name))
}

func validateStructFields(t reflect.Type, prefix string) error {
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}

		if name := tagName(field, "yaml", ""); strings.Contains(name, " ") {
			return fmt.Errorf("invalid yaml tag for field %s: field name cannot contain spaces", path)
		}

		ft := elem(field.Type)
		switch ft.Kind() {
		case reflect.Struct:
			if err := validateStructFields(ft, path); err != nil {
				return err
			}
		case reflect.Slice:
			if et := elem(ft.Elem()); et.Kind() == reflect.Struct {
				if err := validateStructFields(et, path+"[]"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
