package declaration

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element ids of the portal login form, served in place of any page once
// the session is gone
const loginFormSelector = "#txtCnpj, #txtSenha, #btEntrar"

const declarationSelector = "#tipoDeclaracao, #razaoSocial, #tabelaResiduos, table.residuos"

// IsLoginPage reports whether html is the portal login form
func IsLoginPage(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(loginFormSelector).Length() > 0
}

// HasDeclaration reports whether html carries a declaration: a header field,
// the generator name or the waste table
func HasDeclaration(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(declarationSelector).Length() > 0 && doc.Find(loginFormSelector).Length() == 0
}
