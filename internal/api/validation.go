package api

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidNumber   = errors.New("invalid number")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidDateTime = errors.New("invalid datetime")
)

// emailRegex valida formato de e-mail (uma @ e domínio com ponto).
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// validString arma a regra universal de campo obrigatório: não vazio após trim.
func validString(s string) bool {
	return strings.TrimSpace(s) != ""
}

// FlexFloat aceita número JSON ou string numérica. NaN e ±Inf são rejeitados.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return ErrInvalidNumber
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrInvalidNumber
	}
	*f = FlexFloat(v)
	return nil
}

// FlexInt aceita número JSON inteiro ou string de dígitos (ids de procedimento).
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return ErrInvalidNumber
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ErrInvalidNumber
	}
	*f = FlexInt(v)
	return nil
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDateTime aceita data ou data-hora ISO-8601.
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDateTime
}

// parseDateOnly aceita apenas YYYY-MM-DD.
func parseDateOnly(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// endOfDayIfDateOnly promove um fim de intervalo só-data para 23:59:59 do mesmo dia.
func endOfDayIfDateOnly(raw string, t time.Time) time.Time {
	if len(strings.TrimSpace(raw)) == 10 {
		return t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}
	return t
}

// idadeEmAnos calcula a idade em anos inteiros como floor(dias/365).
func idadeEmAnos(nascimento, ref time.Time) int {
	days := int(ref.Sub(nascimento).Hours() / 24)
	return days / 365
}
