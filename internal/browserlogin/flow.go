package browserlogin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/nexconsult/mtr-api/internal/upstream"
)

// Flow is a scripted login on one legacy MTR portal. The portals share the
// same product: the CPF field only appears after the CNPJ field loses focus,
// and a successful login lands on a URL containing SuccessMarker.
type Flow struct {
	Name          string
	PortalURL     string
	SuccessMarker string
}

// Element ids of the legacy login form
const (
	selCNPJRadio = "#rdCnpj"
	selCNPJ      = "#txtCnpj"
	selCPF       = "#txtCpfUsuario"
	selPassword  = "#txtSenha"
	selSubmit    = "#btEntrar"
)

const defaultSuccessMarker = "acao=paginaPrincipal"

// tasks builds the click/fill/blur/submit sequence. delay paces the steps;
// the portal drops keystrokes typed faster than its handlers attach.
func (f Flow) tasks(creds upstream.Credentials, delay, wait time.Duration) chromedp.Tasks {
	pause := chromedp.Sleep(delay)
	marker := f.SuccessMarker
	if marker == "" {
		marker = defaultSuccessMarker
	}

	return chromedp.Tasks{
		chromedp.Navigate(f.PortalURL),
		pause,
		chromedp.WaitReady(selCNPJRadio, chromedp.ByQuery),
		chromedp.Click(selCNPJRadio, chromedp.ByQuery),
		pause,
		chromedp.WaitVisible(selCNPJ, chromedp.ByQuery),
		chromedp.Clear(selCNPJ, chromedp.ByQuery),
		chromedp.SendKeys(selCNPJ, creds.CNPJ, chromedp.ByQuery),
		pause,
		// TAB fires the blur handler that reveals the CPF field
		chromedp.SendKeys(selCNPJ, kb.Tab, chromedp.ByQuery),
		pause,
		chromedp.WaitVisible(selCPF, chromedp.ByQuery),
		chromedp.Clear(selCPF, chromedp.ByQuery),
		chromedp.SendKeys(selCPF, creds.CPF, chromedp.ByQuery),
		pause,
		chromedp.WaitVisible(selPassword, chromedp.ByQuery),
		chromedp.Clear(selPassword, chromedp.ByQuery),
		chromedp.SendKeys(selPassword, creds.Password, chromedp.ByQuery),
		pause,
		chromedp.Click(selSubmit, chromedp.ByQuery),
		waitURLContains(marker, wait),
	}
}

// waitURLContains polls the current location until it contains marker
func waitURLContains(marker string, timeout time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		deadline := time.Now().Add(timeout)
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		var location string
		for {
			if err := chromedp.Location(&location).Do(ctx); err == nil && strings.Contains(location, marker) {
				return nil
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("login did not reach %q (last url %q)", marker, location)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}
