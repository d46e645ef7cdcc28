package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// ValidationError descreve a primeira regra violada pelo payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInteger
)

type fieldRule struct {
	name     string
	kind     fieldKind
	required bool
	nullable bool
	// tag é uma regra extra do validator aplicada ao texto.
	tag string
	set func(r *ErrorReport, v fieldValue)
}

// fieldValue é o valor já validado de um campo; str é nil para null.
type fieldValue struct {
	str *string
	num int
}

// schema na ordem em que as regras são avaliadas. url aceita só URIs absolutas em
// ASCII (RFC 3986); IRIs com caracteres não-ASCII são rejeitadas.
var schema = []fieldRule{
	{name: "errorMessage", kind: kindString, required: true,
		set: func(r *ErrorReport, v fieldValue) { r.ErrorMessage = *v.str }},
	{name: "url", kind: kindString, required: true, tag: "url,printascii",
		set: func(r *ErrorReport, v fieldValue) { r.URL = *v.str }},
	{name: "line", kind: kindInteger, required: true,
		set: func(r *ErrorReport, v fieldValue) { r.Line = v.num }},
	{name: "column", kind: kindInteger, required: true,
		set: func(r *ErrorReport, v fieldValue) { r.Column = v.num }},
	{name: "errorStack", kind: kindString, nullable: true,
		set: func(r *ErrorReport, v fieldValue) { r.ErrorStack = v.str }},
}

var validate = validator.New()

// Decode valida o corpo da request e devolve o relato.
//
// Corpo vazio conta como objeto vazio. As regras são avaliadas campo a campo, na
// ordem do schema, e o primeiro erro encerra a validação. Chaves desconhecidas são
// rejeitadas e números nunca são convertidos a partir de texto. Inteiros valem
// pelo valor: 42, 42.0 e 4.2e1 são a mesma linha.
func Decode(body []byte) (ErrorReport, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return ErrorReport{}, invalid("value", `"value" must be of type object`)
		}
		return ErrorReport{}, invalid("value", "invalid JSON body")
	}
	if raw == nil {
		return ErrorReport{}, invalid("value", `"value" must be of type object`)
	}

	var rep ErrorReport
	known := make(map[string]bool, len(schema))
	for _, rule := range schema {
		known[rule.name] = true
		v, ok := raw[rule.name]
		if !ok {
			if rule.required {
				return ErrorReport{}, invalid(rule.name, "%q is required", rule.name)
			}
			continue
		}
		val, err := rule.check(bytes.TrimSpace(v))
		if err != nil {
			return ErrorReport{}, err
		}
		rule.set(&rep, val)
	}

	if unknown := unknownKeys(raw, known); len(unknown) > 0 {
		return ErrorReport{}, invalid(unknown[0], "%q is not allowed", unknown[0])
	}
	return rep, nil
}

func (rule fieldRule) check(v json.RawMessage) (fieldValue, error) {
	if bytes.Equal(v, []byte("null")) {
		if rule.nullable {
			return fieldValue{}, nil
		}
		return fieldValue{}, rule.typeError()
	}

	switch rule.kind {
	case kindString:
		var s string
		if v[0] != '"' || json.Unmarshal(v, &s) != nil {
			return fieldValue{}, rule.typeError()
		}
		if s == "" {
			return fieldValue{}, invalid(rule.name, "%q is not allowed to be empty", rule.name)
		}
		if rule.tag != "" {
			if err := validate.Var(s, rule.tag); err != nil {
				return fieldValue{}, tagError(rule.name, err)
			}
		}
		return fieldValue{str: &s}, nil
	case kindInteger:
		// json.Number aceita "42" entre aspas; texto não é número aqui.
		var n json.Number
		if v[0] == '"' || json.Unmarshal(v, &n) != nil {
			return fieldValue{}, rule.typeError()
		}
		i, ok := integral(n)
		if !ok {
			return fieldValue{}, invalid(rule.name, "%q must be an integer", rule.name)
		}
		return fieldValue{num: i}, nil
	}
	return fieldValue{}, fmt.Errorf("unknown kind for %q", rule.name)
}

// integral devolve n como int se o valor for inteiro, finito e couber em int.
func integral(n json.Number) (int, bool) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return int(i), int64(int(i)) == i
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	i := int64(f)
	return int(i), int64(int(i)) == i
}

func (rule fieldRule) typeError() error {
	if rule.kind == kindInteger {
		return invalid(rule.name, "%q must be a number", rule.name)
	}
	return invalid(rule.name, "%q must be a string", rule.name)
}

func tagError(name string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "url", "printascii":
			return invalid(name, "%q must be a valid uri", name)
		}
	}
	return invalid(name, "%q is invalid", name)
}

func unknownKeys(raw map[string]json.RawMessage, known map[string]bool) []string {
	var out []string
	for k := range raw {
		if !known[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
