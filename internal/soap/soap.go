// Package soap implements the minimal SOAP 1.1 plumbing shared by the
// DATRAS and WoRMS clients: request envelope construction, fault
// detection, and schema-free extraction of result records.
//
// Responses are parsed generically rather than against per-dataset record
// schemas. Each child of the <operation>Result element is one record and
// each of a record's children becomes a named field, so a table built from
// the response carries exactly the fields the service sent.
package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"datrascli/internal/table"
)

// EnvelopeNS is the SOAP 1.1 envelope namespace
const EnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

// Param is one named SOAP operation parameter. Order is significant on the
// wire, which is why parameters are a slice rather than a map.
type Param struct {
	Name  string
	Value string
}

// BuildEnvelope renders a SOAP 1.1 request envelope for the given
// operation in the given namespace
func BuildEnvelope(operation, namespace string, params []Param) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)

	envelope := xml.StartElement{
		Name: xml.Name{Local: "soap:Envelope"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns:soap"}, Value: EnvelopeNS}},
	}
	body := xml.StartElement{Name: xml.Name{Local: "soap:Body"}}
	op := xml.StartElement{
		Name: xml.Name{Local: operation},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: namespace}},
	}

	tokens := []xml.Token{envelope, body, op}
	for _, p := range params {
		el := xml.StartElement{Name: xml.Name{Local: p.Name}}
		tokens = append(tokens, el, xml.CharData(p.Value), el.End())
	}
	tokens = append(tokens, op.End(), body.End(), envelope.End())

	for _, tok := range tokens {
		if err := enc.EncodeToken(tok); err != nil {
			return nil, fmt.Errorf("failed to encode envelope token: %w", err)
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush envelope: %w", err)
	}

	return buf.Bytes(), nil
}

// Call posts a SOAP 1.1 request for the given operation and returns the
// raw response body. Non-2xx responses other than 500 (which may carry a
// fault) are turned into errors.
func Call(ctx context.Context, client *http.Client, endpoint, namespace, operation string, params []Param) ([]byte, error) {
	payload, err := BuildEnvelope(operation, namespace, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", namespace+"/"+operation))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	// 500 responses carry the fault envelope; let the parser surface it
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
		return nil, fmt.Errorf("%s returned unexpected status %d", operation, resp.StatusCode)
	}

	return data, nil
}

// xmlNode is a generic XML tree used to walk response bodies without
// binding to the per-dataset record schemas
type xmlNode struct {
	XMLName xml.Name
	Nodes   []xmlNode `xml:",any"`
	Text    string    `xml:",chardata"`
}

// FaultError is returned when the service answers with a SOAP fault
type FaultError struct {
	Operation string
	Code      string
	Reason    string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("soap fault from %s: %s (%s)", e.Operation, e.Reason, e.Code)
}

// ParseRecords extracts the result records of a SOAP response body into a
// table. A response without a result element yields an empty table, which
// is how the services report "no data for this combination".
func ParseRecords(operation string, data []byte) (*table.Table, error) {
	response, err := parseBody(operation, data)
	if err != nil {
		return nil, err
	}

	result := findNode(response.Nodes, operation+"Result")
	if result == nil {
		return table.New(), nil
	}

	tbl := table.New()
	for _, record := range result.Nodes {
		row := make(table.Row, len(record.Nodes))
		for _, field := range record.Nodes {
			row[field.XMLName.Local] = field.Text
		}
		if len(row) > 0 {
			tbl.Append(row)
		}
	}
	return tbl, nil
}

// ParseScalar extracts a single text value from a SOAP response, used by
// lookup operations that return one string rather than records
func ParseScalar(operation string, data []byte) (string, error) {
	response, err := parseBody(operation, data)
	if err != nil {
		return "", err
	}

	if result := findNode(response.Nodes, operation+"Result"); result != nil {
		return result.Text, nil
	}
	return "", nil
}

// parseBody unmarshals the envelope, surfaces faults, and returns the
// operation's response element
func parseBody(operation string, data []byte) (*xmlNode, error) {
	var env struct {
		XMLName xml.Name
		Body    xmlNode `xml:"Body"`
	}
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", operation, err)
	}

	if fault := findNode(env.Body.Nodes, "Fault"); fault != nil {
		return nil, &FaultError{
			Operation: operation,
			Code:      childText(fault, "faultcode"),
			Reason:    childText(fault, "faultstring"),
		}
	}

	response := findNode(env.Body.Nodes, operation+"Response")
	if response == nil {
		return nil, fmt.Errorf("response for %s is missing the %sResponse element", operation, operation)
	}
	return response, nil
}

func findNode(nodes []xmlNode, local string) *xmlNode {
	for i := range nodes {
		if nodes[i].XMLName.Local == local {
			return &nodes[i]
		}
	}
	return nil
}

func childText(node *xmlNode, local string) string {
	if child := findNode(node.Nodes, local); child != nil {
		return child.Text
	}
	return ""
}
