package mqtxt

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"msqc/domain/core"
)

// MQParFile is the run-parameters file accompanying a table directory.
const MQParFile = "mqpar.xml"

// genericItems are container item element names whose own name carries no
// meaning; their values are recorded under the enclosing element instead.
var genericItems = map[string]bool{
	"string":  true,
	"int":     true,
	"short":   true,
	"boolean": true,
}

// ReadMQPar loads auxiliary run parameters. The file usually sits next to
// the table directory, so both the directory and its parent are tried.
// An absent file yields (nil, nil); the parameters are metadata only and
// no metric requires them.
func (r *Reader) ReadMQPar() (map[string]string, error) {
	var path string
	for _, dir := range []string{r.dir, filepath.Dir(r.dir)} {
		p := filepath.Join(dir, MQParFile)
		if _, err := os.Stat(p); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrBadInput, path, err)
	}
	defer f.Close()

	params, err := flattenXML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.log.Debugw("run parameters read", "path", path, "keys", len(params))
	return params, nil
}

// flattenXML records the text of every leaf element under its local name.
// Values of repeated names are joined so list containers (fasta files,
// enzymes) come back as one readable entry.
func flattenXML(src io.Reader) (map[string]string, error) {
	dec := xml.NewDecoder(src)
	params := make(map[string]string)
	var stack []string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrBadInput, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			name := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			value := strings.TrimSpace(text.String())
			text.Reset()
			if value == "" {
				continue
			}
			if genericItems[name] && len(stack) > 0 {
				name = stack[len(stack)-1]
			}
			if prev, ok := params[name]; ok {
				params[name] = prev + "; " + value
			} else {
				params[name] = value
			}
		}
	}
	return params, nil
}
