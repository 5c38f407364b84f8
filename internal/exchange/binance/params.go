package binance

import (
	"net/url"
	"strings"
)

type Param struct {
	Key   string
	Value string
}

// Params keeps query parameters in insertion order so the signed string
// matches the query string that is sent.
type Params []Param

// Set replaces the value of an existing key in place or appends a new one.
func (p *Params) Set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

func (p Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}
