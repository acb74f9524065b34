// Package declaration parses the legacy FEAM DMR declaration page into a
// structured record. Parsing is pure: the same HTML always yields the same
// Record.
package declaration

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// wasteColumns is the fixed column count of the waste table; shorter rows
// are headers or malformed and are skipped.
const wasteColumns = 8

// Record is the structured declaration
type Record struct {
	Header           Header           `json:"header"`
	GeneratorProfile GeneratorProfile `json:"generatorProfile"`
	WasteItems       []WasteItem      `json:"wasteItems"`
	Notes            string           `json:"notes"`
}

// Header identifies the declaration period
type Header struct {
	Type      string `json:"type"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// GeneratorProfile is the declaring company block
type GeneratorProfile struct {
	CompanyName       string `json:"companyName"`
	CNPJ              string `json:"cnpj"`
	StateRegistration string `json:"stateRegistration"`
	UnitCode          string `json:"unitCode"`
	Address           string `json:"address"`
	City              string `json:"city"`
	State             string `json:"state"`
	ZipCode           string `json:"zipCode"`
	Activity          string `json:"activity"`
	Responsible       string `json:"responsible"`
	Role              string `json:"role"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
}

// WasteItem is one row of the waste table. Quantities are nil when the cell
// could not be parsed.
type WasteItem struct {
	Disposer          string   `json:"disposer"`
	WasteName         string   `json:"wasteName"`
	Class             string   `json:"class"`
	QuantityDisposed  *float64 `json:"quantityDisposed"`
	QuantityGenerated *float64 `json:"quantityGenerated"`
	QuantityStored    *float64 `json:"quantityStored"`
	Unit              string   `json:"unit"`
	Technology        string   `json:"technology"`
}

// Parse transforms the declaration page. Missing fields become empty strings.
func Parse(html string) (Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse declaration HTML: %w", err)
	}

	rec := Record{
		Header: Header{
			Type:      field(doc, "tipoDeclaracao"),
			StartDate: field(doc, "dataInicial"),
			EndDate:   field(doc, "dataFinal"),
		},
		GeneratorProfile: GeneratorProfile{
			CompanyName:       field(doc, "razaoSocial"),
			CNPJ:              field(doc, "cnpj"),
			StateRegistration: field(doc, "inscricaoEstadual"),
			UnitCode:          field(doc, "codigoUnidade"),
			Address:           field(doc, "endereco"),
			City:              field(doc, "municipio"),
			State:             field(doc, "uf"),
			ZipCode:           field(doc, "cep"),
			Activity:          field(doc, "atividade"),
			Responsible:       field(doc, "responsavel"),
			Role:              field(doc, "cargo"),
			Phone:             field(doc, "telefone"),
			Email:             field(doc, "email"),
		},
		WasteItems: wasteItems(doc),
		Notes:      field(doc, "observacao"),
	}
	return rec, nil
}

// field reads a form control by id, falling back to name
func field(doc *goquery.Document, key string) string {
	sel := doc.Find("#" + key).First()
	if sel.Length() == 0 {
		sel = doc.Find(fmt.Sprintf("[name=%q]", key)).First()
	}
	if sel.Length() == 0 {
		return ""
	}

	switch goquery.NodeName(sel) {
	case "input":
		v, _ := sel.Attr("value")
		return strings.TrimSpace(v)
	case "select":
		opt := sel.Find("option[selected]").First()
		if opt.Length() == 0 {
			return ""
		}
		return clean(opt.Text())
	default:
		return clean(sel.Text())
	}
}

func wasteItems(doc *goquery.Document) []WasteItem {
	items := []WasteItem{}
	rows := doc.Find("#tabelaResiduos tr")
	if rows.Length() == 0 {
		rows = doc.Find("table.residuos tr")
	}
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < wasteColumns {
			return
		}
		text := make([]string, wasteColumns)
		cells.Each(func(i int, cell *goquery.Selection) {
			if i < wasteColumns {
				text[i] = clean(cell.Text())
			}
		})
		items = append(items, WasteItem{
			Disposer:          text[0],
			WasteName:         text[1],
			Class:             text[2],
			QuantityDisposed:  ParseNumber(text[3]),
			QuantityGenerated: ParseNumber(text[4]),
			QuantityStored:    ParseNumber(text[5]),
			Unit:              text[6],
			Technology:        text[7],
		})
	})
	return items
}

// clean collapses whitespace runs
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
