package proto

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
)

const (
	xmlProlog  = `<?xml version="1.0"?>`
	xmlElement = "data"
)

var errNoElement = errors.New("no element")

// xmlCodec writes a single element whose attributes are the payload keys:
//
//	<?xml version="1.0"?><data command="publish" topic="/a" value="1"></data>
//
// Attributes are text, so on the way back every value is a string.
type xmlCodec struct{}

func (xmlCodec) marshal(f map[string]interface{}) ([]byte, error) {
	attrs := make([]xml.Attr, 0, len(f))
	attrs = append(attrs, xml.Attr{Name: xml.Name{Local: keyCommand}, Value: fmt.Sprint(f[keyCommand])})

	keys := make([]string, 0, len(f))
	for k := range f {
		if k != keyCommand {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := xmlText(f[k])
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: k}, Value: v})
	}

	var buf bytes.Buffer
	buf.WriteString(xmlProlog)
	enc := xml.NewEncoder(&buf)
	start := xml.StartElement{Name: xml.Name{Local: xmlElement}, Attr: attrs}
	if err := enc.EncodeToken(start); err != nil {
		return nil, err
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (xmlCodec) unmarshal(payload []byte) (map[string]interface{}, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errNoElement
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		f := make(map[string]interface{}, len(start.Attr))
		for _, a := range start.Attr {
			f[a.Name.Local] = a.Value
		}

		// the element must be well formed up to its end tag
		if err = dec.Skip(); err != nil {
			return nil, err
		}

		return f, nil
	}
}

func xmlText(v interface{}) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
