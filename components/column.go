package components

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit"
)

// ControlKind is the closed set of control variants an ActionColumn packs.
type ControlKind int

const (
	KindButton ControlKind = iota
	KindLinkButton
	KindTextSelect
	KindUserSelect
	KindRoleSelect
	KindChannelSelect
	KindMentionableSelect
)

// rowWidth is how many single-width controls fit in one action row; a select
// menu always takes the whole row.
const (
	rowWidth = 5
	maxRows  = 5
)

func (k ControlKind) width() int {
	if k == KindButton || k == KindLinkButton {
		return 1
	}
	return rowWidth
}

// Control describes one sub-control of an ActionColumn. ID is the identifier
// fragment used as the control's match key; link buttons carry no ID and no
// callback because Discord never dispatches them.
type Control struct {
	ID       string
	Kind     ControlKind
	Callback CallbackFunc

	// Button fields.
	Label string
	Style discordgo.ButtonStyle
	Emoji *discordgo.ComponentEmoji
	URL   string

	// Select fields.
	Options     []discordgo.SelectMenuOption
	Placeholder string
	MinValues   *int
	MaxValues   int

	Disabled bool
}

// ActionColumn is a multi-control executor: an ordered set of buttons and
// select menus rendered into up to five action rows and dispatched by
// identifier fragment under one registration.
type ActionColumn struct {
	controls []Control
	byID     map[string]int
}

// NewActionColumn validates and packs the given controls. It fails with a
// *dgkit.ValidationError when the controls cannot fit Discord's component
// grid or when identifier fragments collide.
func NewActionColumn(controls ...Control) (*ActionColumn, error) {
	col := &ActionColumn{byID: make(map[string]int, len(controls))}
	for _, ctl := range controls {
		if err := col.add(ctl); err != nil {
			return nil, err
		}
	}
	return col, nil
}

func (c *ActionColumn) add(ctl Control) error {
	if ctl.Kind == KindLinkButton {
		if ctl.URL == "" {
			return dgkit.Validationf("link button needs a URL")
		}
	} else {
		if ctl.ID == "" {
			return dgkit.Validationf("control needs an identifier fragment")
		}
		if _, dup := c.byID[ctl.ID]; dup {
			return dgkit.Validationf("duplicated control id %q", ctl.ID)
		}
		if ctl.Callback == nil {
			return dgkit.Validationf("control %q needs a callback", ctl.ID)
		}
	}

	c.controls = append(c.controls, ctl)
	if _, err := c.pack(); err != nil {
		c.controls = c.controls[:len(c.controls)-1]
		return err
	}
	if ctl.Kind != KindLinkButton {
		c.byID[ctl.ID] = len(c.controls) - 1
	}
	return nil
}

// pack distributes the controls over action rows preserving declaration
// order, opening a new row whenever the next control does not fit.
func (c *ActionColumn) pack() ([][]Control, error) {
	var rows [][]Control
	used := 0
	for _, ctl := range c.controls {
		w := ctl.Kind.width()
		if len(rows) == 0 || used+w > rowWidth {
			rows = append(rows, nil)
			used = 0
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], ctl)
		used += w
	}
	if len(rows) > maxRows {
		return nil, dgkit.Validationf("controls span %d rows, max is %d", len(rows), maxRows)
	}
	return rows, nil
}

// CustomIDs lists the dispatchable identifier fragments in declaration order.
func (c *ActionColumn) CustomIDs() []string {
	ids := make([]string, 0, len(c.byID))
	for _, ctl := range c.controls {
		if ctl.Kind != KindLinkButton {
			ids = append(ids, ctl.ID)
		}
	}
	return ids
}

// Rows renders the column as discordgo message components.
func (c *ActionColumn) Rows() []discordgo.MessageComponent {
	rows, err := c.pack()
	if err != nil {
		// add() ya validó cada control, no puede pasar.
		panic(err)
	}

	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		ar := discordgo.ActionsRow{}
		for _, ctl := range row {
			ar.Components = append(ar.Components, ctl.render())
		}
		out = append(out, ar)
	}
	return out
}

func (ctl Control) render() discordgo.MessageComponent {
	switch ctl.Kind {
	case KindButton:
		style := ctl.Style
		if style == 0 {
			style = discordgo.SecondaryButton
		}
		return discordgo.Button{
			CustomID: ctl.ID,
			Label:    ctl.Label,
			Style:    style,
			Emoji:    ctl.Emoji,
			Disabled: ctl.Disabled,
		}
	case KindLinkButton:
		return discordgo.Button{
			Label:    ctl.Label,
			Style:    discordgo.LinkButton,
			Emoji:    ctl.Emoji,
			URL:      ctl.URL,
			Disabled: ctl.Disabled,
		}
	default:
		return discordgo.SelectMenu{
			MenuType:    ctl.Kind.menuType(),
			CustomID:    ctl.ID,
			Placeholder: ctl.Placeholder,
			MinValues:   ctl.MinValues,
			MaxValues:   ctl.MaxValues,
			Options:     ctl.Options,
			Disabled:    ctl.Disabled,
		}
	}
}

func (k ControlKind) menuType() discordgo.SelectMenuType {
	switch k {
	case KindUserSelect:
		return discordgo.UserSelectMenu
	case KindRoleSelect:
		return discordgo.RoleSelectMenu
	case KindChannelSelect:
		return discordgo.ChannelSelectMenu
	case KindMentionableSelect:
		return discordgo.MentionableSelectMenu
	default:
		return discordgo.StringSelectMenu
	}
}

// Execute resolves the pressed control by the custom ID's match half and runs
// its callback.
func (c *ActionColumn) Execute(ctx context.Context, cctx *Context) error {
	idx, ok := c.byID[cctx.IDMatch()]
	if !ok {
		return dgkit.ErrNotFound
	}
	return c.controls[idx].Callback(ctx, cctx)
}

// Template is an immutable control list that reusable column declarations
// copy-construct from, so no instance state leaks between registrations.
type Template struct {
	controls []Control
}

// NewTemplate validates the controls once up front.
func NewTemplate(controls ...Control) (*Template, error) {
	if _, err := NewActionColumn(controls...); err != nil {
		return nil, err
	}
	cp := make([]Control, len(controls))
	copy(cp, controls)
	return &Template{controls: cp}, nil
}

// Column builds a fresh ActionColumn from the template.
func (t *Template) Column() *ActionColumn {
	col, err := NewActionColumn(t.controls...)
	if err != nil {
		panic(err)
	}
	return col
}
