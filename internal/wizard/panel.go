package wizard

import (
	"strings"

	"github.com/ErlanBelekov/vsm-auth/internal/domain"
)

// PanelController keeps exactly one of the login, register and verify panels
// on screen. Every Show* is total: whatever was visible before is hidden.
type PanelController struct {
	page      *page
	countdown *Countdown
	flow      domain.FlowMode
}

func newPanelController(p *page, c *Countdown) *PanelController {
	return &PanelController{page: p, countdown: c}
}

func (pc *PanelController) ShowLogin() {
	pc.show(domain.PanelLogin, domain.FlowLogin)
}

func (pc *PanelController) ShowRegister() {
	pc.show(domain.PanelRegister, domain.FlowRegister)
}

// ShowOtp switches to the verify panel for flow, shows the email typed into
// that flow's form, empties the digit cells, focuses the first one and
// (re)starts the resend countdown.
func (pc *PanelController) ShowOtp(flow domain.FlowMode) {
	pc.show(domain.PanelOTP, flow)
	pc.flow = flow
	pc.page.emailDisplay = strings.TrimSpace(pc.page.inputs[domain.EmailField(flow)])
	pc.page.otp.Reset()
	pc.page.focus = domain.OTPCell(0)
	pc.countdown.Start()
}

func (pc *PanelController) Flow() domain.FlowMode { return pc.flow }

func (pc *PanelController) Current() domain.Panel { return pc.page.panel }

func (pc *PanelController) show(panel domain.Panel, tab domain.FlowMode) {
	if pc.page.panel == domain.PanelOTP && panel != domain.PanelOTP {
		pc.page.otp.Reset()
		pc.countdown.Stop()
	}
	pc.page.panel = panel
	pc.page.tab = tab
	pc.page.completion = ""
}
