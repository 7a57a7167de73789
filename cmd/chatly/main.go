package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chatly-app/chatly-tui/internal/client/api"
	"github.com/chatly-app/chatly-tui/internal/client/chat"
	"github.com/chatly-app/chatly-tui/internal/client/config"
	"github.com/chatly-app/chatly-tui/internal/client/debug"
	"github.com/chatly-app/chatly-tui/internal/client/model"
	"github.com/chatly-app/chatly-tui/internal/client/panel"
	"github.com/chatly-app/chatly-tui/internal/client/realtime"
	"github.com/chatly-app/chatly-tui/internal/client/session"
	"github.com/chatly-app/chatly-tui/internal/client/store"
)

// --- Styles ---

var (
	primaryColor   = lipgloss.Color("#00BFA6")
	secondaryColor = lipgloss.Color("#0AE2C3")
	accentColor    = lipgloss.Color("#FFD93D")
	mutedColor     = lipgloss.Color("#9CA3AF")
	errorColor     = lipgloss.Color("#EF4444")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	ownMessageStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	otherMessageStyle = lipgloss.NewStyle().
				Foreground(primaryColor)

	accentStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

var defaultAvatars = []string{
	"https://img.chatly.app/avatars/1.png",
	"https://img.chatly.app/avatars/2.png",
	"https://img.chatly.app/avatars/3.png",
}

var defaultGroupAvatars = []string{
	"https://img.chatly.app/groups/1.png",
	"https://img.chatly.app/groups/2.png",
}

// --- View State ---

type viewState int

const (
	viewEmail viewState = iota
	viewOTP
	viewProfile
	viewChats
)

type chatsFocus int

const (
	focusList chatsFocus = iota
	focusComposer
)

type modalMode int

const (
	modalModeView modalMode = iota
	modalModeEdit
	modalModeAdd
)

// --- Messages ---

type errMsg struct {
	where string
	err   error
}

type otpSentMsg struct{ email string }

type verifiedMsg struct {
	token string
	user  *model.User
}

type guestMsg struct {
	token string
	user  *model.User
}

type profileSetMsg struct{ user *model.User }

type resolvedMsg struct{ err error }

type connectedMsg struct{ ch *realtime.WSChannel }

type bootstrappedMsg struct{}

type chatOpenedMsg struct{ err error }

type sentMsg struct{ err error }

type searchResultsMsg struct{ users []model.User }

type groupCreatedMsg struct{ err error }

type memberOpMsg struct{ err error }

type profileSavedMsg struct{ err error }

type storeChangedMsg struct{}

type typingMsg struct {
	ev     realtime.TypingEvent
	typing bool
}

type channelClosedMsg struct{}

// --- Model ---

type appModel struct {
	cfg      config.Config
	sess     *session.Store
	chats    *store.ConversationStore
	modals   *store.ModalStore
	panels   panel.Controller
	apic     *api.Client
	uploader *api.Uploader

	channel *realtime.WSChannel
	adapter *realtime.Adapter
	typist  *realtime.Typist
	coord   *chat.Coordinator

	// events funnels store notifications and channel callbacks into the
	// tea loop; waitForEvent re-arms after every delivery.
	events chan tea.Msg

	view    viewState
	focus   chatsFocus
	loading bool

	emailInput    textinput.Model
	otpInput      textinput.Model
	usernameInput textinput.Model
	avatarInput   textinput.Model
	messageInput  textinput.Model
	searchInput   textinput.Model
	nameInput     textinput.Model
	descInput     textinput.Model
	bioInput      textinput.Model

	thread viewport.Model
	spin   spinner.Model

	email    string
	cursor   int
	authErr  string
	chatsErr string
	modalErr string

	// modal working state
	modalMode     modalMode
	modalCursor   int
	searchResults []model.User
	groupDraft    []model.User

	// peers currently typing, keyed by chat id
	typingPeers map[string]string

	width  int
	height int
}

func initialModel(cfg config.Config) *appModel {
	sess := session.NewStore(cfg.Profile)

	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.CharLimit = 254
	emailInput.Width = 40
	emailInput.Focus()

	otpInput := textinput.New()
	otpInput.Placeholder = "6-digit code"
	otpInput.CharLimit = 6
	otpInput.Width = 10

	usernameInput := textinput.New()
	usernameInput.Placeholder = "e.g. alex"
	usernameInput.CharLimit = 20
	usernameInput.Width = 30

	avatarInput := textinput.New()
	avatarInput.Placeholder = "avatar URL or image path (optional)"
	avatarInput.CharLimit = 512
	avatarInput.Width = 40

	messageInput := textinput.New()
	messageInput.Placeholder = "Type a message..."
	messageInput.CharLimit = 1000
	messageInput.Width = 50

	searchInput := textinput.New()
	searchInput.Placeholder = "Search by username or email"
	searchInput.CharLimit = 64
	searchInput.Width = 36

	nameInput := textinput.New()
	nameInput.Placeholder = "e.g. Weekend Squad"
	nameInput.CharLimit = 30
	nameInput.Width = 36

	descInput := textinput.New()
	descInput.Placeholder = "Say something..."
	descInput.CharLimit = 60
	descInput.Width = 36

	bioInput := textinput.New()
	bioInput.Placeholder = "A line about you"
	bioInput.CharLimit = 160
	bioInput.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	m := &appModel{
		cfg:           cfg,
		sess:          sess,
		chats:         store.NewConversationStore(),
		modals:        store.NewModalStore(),
		apic:          nil,
		events:        make(chan tea.Msg, 64),
		view:          viewEmail,
		emailInput:    emailInput,
		otpInput:      otpInput,
		usernameInput: usernameInput,
		avatarInput:   avatarInput,
		messageInput:  messageInput,
		searchInput:   searchInput,
		nameInput:     nameInput,
		descInput:     descInput,
		bioInput:      bioInput,
		thread:        viewport.New(80, 20),
		spin:          sp,
		typingPeers:   make(map[string]string),
	}
	m.apic = api.New(cfg.APIURL, sess)
	if cfg.CloudName != "" {
		m.uploader = api.NewUploader(cfg.CloudName, cfg.UploadPreset)
	}

	m.chats.Subscribe(func() {
		select {
		case m.events <- storeChangedMsg{}:
		default:
		}
	})

	return m
}

// --- Commands ---

func reqCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func (m *appModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m *appModel) resolveSession() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return resolvedMsg{err: m.sess.Resolve(ctx, m.apic)}
	}
}

func (m *appModel) connect() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		ch, err := realtime.Dial(ctx, m.cfg.SocketURL, m.sess.Token())
		if err != nil {
			return errMsg{where: "chats", err: err}
		}
		return connectedMsg{ch: ch}
	}
}

func (m *appModel) watchChannel() tea.Cmd {
	ch := m.channel
	return func() tea.Msg {
		<-ch.Done()
		return channelClosedMsg{}
	}
}

func (m *appModel) bootstrap() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		if err := m.coord.Bootstrap(ctx); err != nil {
			return errMsg{where: "chats", err: err}
		}
		return bootstrappedMsg{}
	}
}

func (m *appModel) sendOTP(email string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		if err := m.apic.SendOTP(ctx, email); err != nil {
			return errMsg{where: "auth", err: err}
		}
		return otpSentMsg{email: email}
	}
}

func (m *appModel) verifyOTP(email, otp string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		token, user, err := m.apic.VerifyOTP(ctx, email, otp)
		if err != nil {
			return errMsg{where: "auth", err: err}
		}
		return verifiedMsg{token: token, user: user}
	}
}

func (m *appModel) guestLogin() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		token, user, err := m.apic.GuestLogin(ctx)
		if err != nil {
			return errMsg{where: "auth", err: err}
		}
		return guestMsg{token: token, user: user}
	}
}

// resolveAvatar turns the avatar input into a hosted URL: local files go
// through the image host, URLs pass through, empty picks a default.
func (m *appModel) resolveAvatar(ctx context.Context, value string, defaults []string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaults[0], nil
	}
	if _, err := os.Stat(value); err == nil {
		if m.uploader == nil {
			return "", fmt.Errorf("image upload not configured")
		}
		f, err := os.Open(value)
		if err != nil {
			return "", err
		}
		defer f.Close()
		return m.uploader.Upload(ctx, f.Name(), f)
	}
	return value, nil
}

func (m *appModel) setProfile(avatar, username string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		hosted, err := m.resolveAvatar(ctx, avatar, defaultAvatars)
		if err != nil {
			return errMsg{where: "auth", err: err}
		}
		user, err := m.apic.SetProfile(ctx, hosted, username)
		if err != nil {
			return errMsg{where: "auth", err: err}
		}
		return profileSetMsg{user: user}
	}
}

func (m *appModel) openChat(c model.Chat) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return chatOpenedMsg{err: m.coord.Open(ctx, c)}
	}
}

func (m *appModel) openDirect(userID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		_, err := m.coord.OpenDirect(ctx, userID)
		return chatOpenedMsg{err: err}
	}
}

func (m *appModel) sendMessage(content string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		_, err := m.coord.Send(ctx, content)
		return sentMsg{err: err}
	}
}

func (m *appModel) searchUsers(q string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		users, err := m.apic.SearchUsers(ctx, q)
		if err != nil {
			return errMsg{where: "modal", err: err}
		}
		return searchResultsMsg{users: users}
	}
}

func (m *appModel) createGroup(name string, users []model.User, avatar string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		hosted, err := m.resolveAvatar(ctx, avatar, defaultGroupAvatars)
		if err != nil {
			return groupCreatedMsg{err: err}
		}
		ids := make([]string, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		_, err = m.coord.CreateGroup(ctx, name, ids, hosted)
		return groupCreatedMsg{err: err}
	}
}

func (m *appModel) addMember(chatID string, u model.User) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return memberOpMsg{err: m.coord.AddMember(ctx, chatID, u)}
	}
}

func (m *appModel) removeMember(chatID, userID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return memberOpMsg{err: m.coord.RemoveMember(ctx, chatID, userID)}
	}
}

func (m *appModel) leaveGroup(chatID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return memberOpMsg{err: m.coord.LeaveGroup(ctx, chatID)}
	}
}

func (m *appModel) updateGroup(chatID, name, description, avatar string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		hosted, err := m.resolveAvatar(ctx, avatar, defaultGroupAvatars)
		if err != nil {
			return memberOpMsg{err: err}
		}
		_, err = m.coord.UpdateGroup(ctx, chatID, name, description, hosted)
		return memberOpMsg{err: err}
	}
}

func (m *appModel) saveProfile(avatar, username, bio string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		hosted, err := m.resolveAvatar(ctx, avatar, defaultAvatars)
		if err != nil {
			return profileSavedMsg{err: err}
		}
		return profileSavedMsg{err: m.coord.UpdateProfile(ctx, hosted, username, bio)}
	}
}

// --- Init ---

func (m *appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spin.Tick, m.waitForEvent()}
	if m.sess.Token() != "" {
		m.loading = true
		cmds = append(cmds, m.resolveSession())
	}
	return tea.Batch(cmds...)
}

// --- Update ---

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.thread.Width = m.detailWidth() - 4
		m.thread.Height = msg.Height - 10
		m.renderThread()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case errMsg:
		m.loading = false
		switch msg.where {
		case "auth":
			m.authErr = msg.err.Error()
		case "modal":
			m.modalErr = msg.err.Error()
		default:
			m.chatsErr = msg.err.Error()
		}
		return m, nil

	case resolvedMsg:
		if msg.err != nil {
			// Fail-closed: the token is already gone; back to email.
			m.loading = false
			m.view = viewEmail
			m.emailInput.Focus()
			return m, nil
		}
		return m, m.connect()

	case otpSentMsg:
		m.loading = false
		m.authErr = ""
		m.email = msg.email
		m.view = viewOTP
		m.emailInput.Blur()
		m.otpInput.Focus()
		return m, nil

	case verifiedMsg:
		m.authErr = ""
		m.sess.SetToken(msg.token)
		m.sess.Login(msg.user)
		m.otpInput.Blur()
		if msg.user != nil && msg.user.Username != "" {
			m.usernameInput.SetValue(msg.user.Username)
		}
		m.view = viewProfile
		m.usernameInput.Focus()
		m.loading = false
		return m, nil

	case guestMsg:
		m.authErr = ""
		m.sess.SetToken(msg.token)
		m.sess.Login(msg.user)
		m.view = viewProfile
		m.usernameInput.Focus()
		m.loading = false
		return m, nil

	case profileSetMsg:
		m.sess.Update(msg.user)
		m.usernameInput.Blur()
		m.loading = true
		return m, m.connect()

	case connectedMsg:
		m.channel = msg.ch
		m.adapter = realtime.NewAdapter(m.channel, m.chats)
		m.typist = realtime.NewTypist(m.channel, realtime.DefaultTypingDelay)
		m.coord = chat.NewCoordinator(m.apic, m.sess, m.chats, m.adapter, m.typist)
		m.adapter.SubscribeTyping(func(ev realtime.TypingEvent, typing bool) {
			select {
			case m.events <- typingMsg{ev: ev, typing: typing}:
			default:
			}
		})
		return m, tea.Batch(m.bootstrap(), m.watchChannel())

	case bootstrappedMsg:
		m.loading = false
		m.view = viewChats
		m.focus = focusList
		return m, nil

	case channelClosedMsg:
		if m.view == viewChats {
			m.chatsErr = "connection lost"
		}
		return m, nil

	case chatOpenedMsg:
		if msg.err != nil {
			m.chatsErr = msg.err.Error()
		} else {
			m.chatsErr = ""
			m.modalErr = ""
			if m.modals.Active() == store.ModalSearch {
				m.modals.Close()
			}
			if !m.panels.DualPane(m.width) {
				m.panels.SwitchTo(panel.Right)
			}
			m.focus = focusComposer
			m.messageInput.Focus()
			m.renderThread()
		}
		return m, nil

	case sentMsg:
		if msg.err != nil {
			m.chatsErr = msg.err.Error()
		} else {
			m.chatsErr = ""
			m.renderThread()
		}
		return m, nil

	case searchResultsMsg:
		m.modalErr = ""
		m.searchResults = msg.users
		m.modalCursor = 0
		return m, nil

	case groupCreatedMsg:
		if msg.err != nil {
			m.modalErr = msg.err.Error()
		} else {
			m.closeModal()
		}
		return m, nil

	case memberOpMsg:
		if msg.err != nil {
			m.modalErr = msg.err.Error()
		} else {
			m.modalErr = ""
			m.modalMode = modalModeView
			if m.chats.Selected() == nil {
				// Left the group; its modal has nothing to show.
				m.closeModal()
			}
		}
		return m, nil

	case profileSavedMsg:
		if msg.err != nil {
			m.modalErr = msg.err.Error()
		} else {
			m.closeModal()
		}
		return m, nil

	case storeChangedMsg:
		m.renderThread()
		cmds = append(cmds, m.waitForEvent())

	case typingMsg:
		if msg.typing {
			m.typingPeers[msg.ev.ChatID] = msg.ev.UserID
		} else {
			delete(m.typingPeers, msg.ev.ChatID)
		}
		cmds = append(cmds, m.waitForEvent())

	case tea.KeyMsg:
		mdl, cmd := m.handleKey(msg)
		cmds = append(cmds, cmd)
		return mdl, tea.Batch(cmds...)
	}

	cmds = append(cmds, m.updateInputs(msg))
	return m, tea.Batch(cmds...)
}

func (m *appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	var cmd tea.Cmd
	switch m.view {
	case viewEmail:
		cmd = m.keyEmail(msg)
	case viewOTP:
		cmd = m.keyOTP(msg)
	case viewProfile:
		cmd = m.keyProfile(msg)
	case viewChats:
		if m.modals.Active() != store.ModalNone {
			cmd = m.keyModal(msg)
		} else {
			cmd = m.keyChats(msg)
		}
	}
	return m, tea.Batch(cmd, m.updateInputs(msg))
}

func (m *appModel) keyEmail(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		email := strings.TrimSpace(m.emailInput.Value())
		if email == "" || !strings.Contains(email, "@") {
			m.authErr = "Invalid email address"
			return nil
		}
		m.loading = true
		return m.sendOTP(email)
	case "ctrl+g":
		m.loading = true
		return m.guestLogin()
	}
	return nil
}

func (m *appModel) keyOTP(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		otp := strings.TrimSpace(m.otpInput.Value())
		if len(otp) != 6 {
			m.authErr = "OTP must be exactly 6 digits"
			return nil
		}
		m.loading = true
		return m.verifyOTP(m.email, otp)
	case "ctrl+r":
		m.loading = true
		return m.sendOTP(m.email)
	case "esc":
		m.view = viewEmail
		m.otpInput.Blur()
		m.otpInput.SetValue("")
		m.emailInput.Focus()
		m.authErr = ""
	}
	return nil
}

func (m *appModel) keyProfile(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		if m.usernameInput.Focused() {
			m.usernameInput.Blur()
			m.avatarInput.Focus()
		} else {
			m.avatarInput.Blur()
			m.usernameInput.Focus()
		}
	case "enter":
		username := strings.TrimSpace(m.usernameInput.Value())
		if len(username) < 3 {
			m.authErr = "Username must be at least 3 characters"
			return nil
		}
		m.loading = true
		return m.setProfile(m.avatarInput.Value(), username)
	}
	return nil
}

func (m *appModel) keyChats(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	// Global keys first.
	switch key {
	case "ctrl+f":
		m.openModal(store.ModalSearch)
		return nil
	case "ctrl+n":
		m.openModal(store.ModalGroupChat)
		return nil
	case "ctrl+p":
		m.openModal(store.ModalProfile)
		return nil
	case "ctrl+v":
		if sel := m.chats.Selected(); sel != nil {
			if sel.IsGroup {
				m.openModal(store.ModalViewGroupProfile)
			} else {
				m.openModal(store.ModalViewProfile)
			}
		}
		return nil
	case "ctrl+l":
		m.logout()
		return nil
	case "tab":
		if m.chats.Selected() != nil {
			if m.focus == focusList {
				m.focus = focusComposer
				m.messageInput.Focus()
			} else {
				m.focus = focusList
				m.messageInput.Blur()
			}
		}
		return nil
	case "esc":
		if !m.panels.DualPane(m.width) && m.panels.Active() == panel.Right {
			m.panels.SwitchTo(panel.Left)
			m.focus = focusList
			m.messageInput.Blur()
			return nil
		}
		if m.chats.Selected() != nil {
			m.coord.Close()
			m.focus = focusList
			m.messageInput.Blur()
			m.renderThread()
		}
		return nil
	}

	if m.focus == focusComposer {
		switch key {
		case "enter":
			content := m.messageInput.Value()
			if strings.TrimSpace(content) == "" {
				return nil
			}
			m.messageInput.SetValue("")
			return m.sendMessage(content)
		default:
			if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace || msg.Type == tea.KeyBackspace {
				if me := m.sess.User(); me != nil {
					if id := m.chats.SelectedID(); id != "" {
						m.typist.Keystroke(id, me.ID)
					}
				}
			}
		}
		return nil
	}

	// List focus.
	items := m.listLen()
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < items-1 {
			m.cursor++
		}
	case "enter":
		chats := m.chats.Chats()
		if len(chats) > 0 {
			if m.cursor < len(chats) {
				return m.openChat(chats[m.cursor])
			}
		} else if suggested := m.chats.SuggestedUsers(); m.cursor < len(suggested) {
			// No chats yet: picking a suggestion opens a direct chat.
			return m.openDirect(suggested[m.cursor].ID)
		}
	}
	return nil
}

func (m *appModel) keyModal(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "esc" {
		if m.modalMode != modalModeView && m.modals.Active() == store.ModalViewGroupProfile {
			m.modalMode = modalModeView
			return nil
		}
		m.closeModal()
		return nil
	}

	switch m.modals.Active() {
	case store.ModalSearch:
		return m.keySearchModal(msg)
	case store.ModalGroupChat:
		return m.keyGroupModal(msg)
	case store.ModalProfile:
		return m.keyProfileModal(msg)
	case store.ModalViewProfile:
		// Read-only; any other key is ignored.
		return nil
	case store.ModalViewGroupProfile:
		return m.keyGroupProfileModal(msg)
	}
	return nil
}

func (m *appModel) keySearchModal(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		q := strings.TrimSpace(m.searchInput.Value())
		if len(q) < 2 {
			m.modalErr = "Enter at least 2 characters"
			return nil
		}
		return m.searchUsers(q)
	case "up":
		if m.modalCursor > 0 {
			m.modalCursor--
		}
	case "down":
		if m.modalCursor < len(m.searchResults)-1 {
			m.modalCursor++
		}
	case "ctrl+o":
		if m.modalCursor < len(m.searchResults) {
			return m.openDirect(m.searchResults[m.modalCursor].ID)
		}
	}
	return nil
}

func (m *appModel) keyGroupModal(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		if m.nameInput.Focused() {
			m.nameInput.Blur()
			m.searchInput.Focus()
		} else {
			m.searchInput.Blur()
			m.nameInput.Focus()
		}
	case "enter":
		if m.searchInput.Focused() {
			q := strings.TrimSpace(m.searchInput.Value())
			if q != "" {
				return m.searchUsers(q)
			}
		}
	case "up":
		if m.modalCursor > 0 {
			m.modalCursor--
		}
	case "down":
		if m.modalCursor < len(m.searchResults)-1 {
			m.modalCursor++
		}
	case "ctrl+t":
		if m.modalCursor < len(m.searchResults) {
			m.toggleDraftUser(m.searchResults[m.modalCursor])
		}
	case "ctrl+s":
		name := strings.TrimSpace(m.nameInput.Value())
		if len(name) < 3 {
			m.modalErr = "Group name must be at least 3 characters"
			return nil
		}
		if len(m.groupDraft) == 0 {
			m.modalErr = "Add at least one member"
			return nil
		}
		return m.createGroup(name, m.groupDraft, m.avatarInput.Value())
	}
	return nil
}

func (m *appModel) keyProfileModal(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		switch {
		case m.usernameInput.Focused():
			m.usernameInput.Blur()
			m.bioInput.Focus()
		case m.bioInput.Focused():
			m.bioInput.Blur()
			m.avatarInput.Focus()
		default:
			m.avatarInput.Blur()
			m.usernameInput.Focus()
		}
	case "ctrl+s":
		username := strings.TrimSpace(m.usernameInput.Value())
		if len(username) < 3 {
			m.modalErr = "Username must be at least 3 characters"
			return nil
		}
		return m.saveProfile(m.avatarInput.Value(), username, m.bioInput.Value())
	}
	return nil
}

func (m *appModel) keyGroupProfileModal(msg tea.KeyMsg) tea.Cmd {
	sel := m.chats.Selected()
	if sel == nil {
		m.closeModal()
		return nil
	}
	me := m.sess.User()
	isAdmin := me != nil && sel.IsAdmin(me.ID)

	switch m.modalMode {
	case modalModeView:
		switch msg.String() {
		case "up":
			if m.modalCursor > 0 {
				m.modalCursor--
			}
		case "down":
			if m.modalCursor < len(sel.Users)-1 {
				m.modalCursor++
			}
		case "ctrl+x":
			if isAdmin && m.modalCursor < len(sel.Users) {
				target := sel.Users[m.modalCursor]
				if target.ID != me.ID {
					return m.removeMember(sel.ID, target.ID)
				}
			}
		case "ctrl+a":
			if isAdmin {
				m.modalMode = modalModeAdd
				m.searchResults = nil
				m.searchInput.SetValue("")
				m.searchInput.Focus()
			}
		case "ctrl+e":
			if isAdmin {
				m.modalMode = modalModeEdit
				m.nameInput.SetValue(sel.Name)
				m.descInput.SetValue(sel.Description)
				m.nameInput.Focus()
			}
		case "ctrl+q":
			if !isAdmin {
				return m.leaveGroup(sel.ID)
			}
		}
	case modalModeAdd:
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.searchInput.Value())
			if q != "" {
				return m.searchUsers(q)
			}
		case "up":
			if m.modalCursor > 0 {
				m.modalCursor--
			}
		case "down":
			if m.modalCursor < len(m.searchResults)-1 {
				m.modalCursor++
			}
		case "ctrl+t":
			if m.modalCursor < len(m.searchResults) {
				candidate := m.searchResults[m.modalCursor]
				for _, u := range sel.Users {
					if u.ID == candidate.ID {
						m.modalErr = "Already a member"
						return nil
					}
				}
				return m.addMember(sel.ID, candidate)
			}
		}
	case modalModeEdit:
		switch msg.String() {
		case "tab":
			if m.nameInput.Focused() {
				m.nameInput.Blur()
				m.descInput.Focus()
			} else {
				m.descInput.Blur()
				m.nameInput.Focus()
			}
		case "ctrl+s":
			name := strings.TrimSpace(m.nameInput.Value())
			desc := strings.TrimSpace(m.descInput.Value())
			if len(name) < 3 {
				m.modalErr = "Group name must be at least 3 characters"
				return nil
			}
			return m.updateGroup(sel.ID, name, desc, m.avatarInput.Value())
		}
	}
	return nil
}

func (m *appModel) updateInputs(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	inputs := []*textinput.Model{
		&m.emailInput, &m.otpInput, &m.usernameInput, &m.avatarInput,
		&m.messageInput, &m.searchInput, &m.nameInput, &m.descInput, &m.bioInput,
	}
	for _, in := range inputs {
		if in.Focused() {
			*in, cmd = in.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.view == viewChats && m.focus == focusList {
		m.thread, cmd = m.thread.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// --- helpers ---

func (m *appModel) openModal(kind store.Modal) {
	m.modals.Open(kind)
	m.modalErr = ""
	m.modalMode = modalModeView
	m.modalCursor = 0
	m.searchResults = nil
	m.groupDraft = nil
	m.messageInput.Blur()

	switch kind {
	case store.ModalSearch:
		m.searchInput.SetValue("")
		m.searchInput.Focus()
	case store.ModalGroupChat:
		m.nameInput.SetValue("")
		m.searchInput.SetValue("")
		m.avatarInput.SetValue("")
		m.nameInput.Focus()
	case store.ModalProfile:
		if me := m.sess.User(); me != nil {
			m.usernameInput.SetValue(me.Username)
			m.bioInput.SetValue(me.Bio)
			m.avatarInput.SetValue(me.Avatar)
		}
		m.usernameInput.Focus()
	}
}

func (m *appModel) closeModal() {
	m.modals.Close()
	m.modalErr = ""
	m.modalMode = modalModeView
	for _, in := range []*textinput.Model{&m.searchInput, &m.nameInput, &m.descInput, &m.usernameInput, &m.bioInput, &m.avatarInput} {
		in.Blur()
	}
	if m.chats.Selected() != nil && m.focus == focusComposer {
		m.messageInput.Focus()
	}
}

func (m *appModel) toggleDraftUser(u model.User) {
	for i, d := range m.groupDraft {
		if d.ID == u.ID {
			m.groupDraft = append(m.groupDraft[:i], m.groupDraft[i+1:]...)
			return
		}
	}
	m.groupDraft = append(m.groupDraft, u)
}

func (m *appModel) logout() {
	if m.coord != nil {
		m.coord.Logout()
	} else {
		m.sess.Logout()
	}
	if m.channel != nil {
		m.channel.Close()
		m.channel = nil
	}
	m.chats.Select(nil)
	m.chats.SetMessages(nil)
	m.chats.SetChats(nil)
	m.modals.Close()
	m.view = viewEmail
	m.emailInput.SetValue("")
	m.emailInput.Focus()
	m.messageInput.Blur()
}

func (m *appModel) listLen() int {
	if chats := m.chats.Chats(); len(chats) > 0 {
		return len(chats)
	}
	return len(m.chats.SuggestedUsers())
}

func (m *appModel) detailWidth() int {
	if m.panels.DualPane(m.width) {
		return m.width * 3 / 5
	}
	return m.width
}

func (m *appModel) renderThread() {
	me := m.sess.User()
	myID := ""
	if me != nil {
		myID = me.ID
	}
	sel := m.chats.Selected()

	var content strings.Builder
	var lastSender string
	for _, msg := range m.chats.Messages() {
		timestamp := msg.CreatedAt.Format("15:04")
		style := otherMessageStyle
		if msg.Sender.ID == myID {
			style = ownMessageStyle
		}
		// In groups, show the sender name only for the first message of
		// a block, matching the bubble grouping of the web client.
		if sel != nil && sel.IsGroup && msg.Sender.ID != myID && msg.Sender.ID != lastSender {
			content.WriteString(style.Render(msg.Sender.Username) + "\n")
		}
		lastSender = msg.Sender.ID
		content.WriteString(fmt.Sprintf("%s %s\n", mutedStyle.Render(timestamp), msg.Content))
	}
	m.thread.SetContent(content.String())
	m.thread.GotoBottom()
}

// --- View ---

func (m *appModel) View() string {
	if m.loading {
		return fmt.Sprintf("\n\n  %s %s\n", m.spin.View(), mutedStyle.Render("Loading..."))
	}

	switch m.view {
	case viewEmail:
		return m.emailView()
	case viewOTP:
		return m.otpView()
	case viewProfile:
		return m.profileView()
	case viewChats:
		if m.modals.Active() != store.ModalNone {
			return m.modalView()
		}
		return m.chatsView()
	}
	return ""
}

func (m *appModel) emailView() string {
	var s strings.Builder

	s.WriteString("\n")
	s.WriteString(titleStyle.Render("CHATLY"))
	s.WriteString("\n\n")
	s.WriteString("  Sign in with Email\n")
	s.WriteString(mutedStyle.Render("  Fast & secure — we'll send a one-time code\n\n"))
	s.WriteString("  " + m.emailInput.View() + "\n\n")

	if m.authErr != "" {
		s.WriteString(errorStyle.Render("  "+m.authErr) + "\n\n")
	}

	s.WriteString(helpStyle.Render("  Enter to continue • Ctrl+G guest login • Ctrl+C to quit\n"))
	return s.String()
}

func (m *appModel) otpView() string {
	var s strings.Builder

	s.WriteString("\n")
	s.WriteString(titleStyle.Render("CHATLY"))
	s.WriteString("\n\n")
	s.WriteString("  Enter Verification Code\n")
	s.WriteString(mutedStyle.Render(fmt.Sprintf("  We've sent a 6-digit code to %s\n\n", m.email)))
	s.WriteString("  " + m.otpInput.View() + "\n\n")

	if m.authErr != "" {
		s.WriteString(errorStyle.Render("  "+m.authErr) + "\n\n")
	}

	s.WriteString(helpStyle.Render("  Enter to verify • Ctrl+R resend • Esc to change email\n"))
	return s.String()
}

func (m *appModel) profileView() string {
	var s strings.Builder

	s.WriteString("\n")
	s.WriteString(titleStyle.Render("CHATLY"))
	s.WriteString("\n\n")
	s.WriteString("  Set up your profile\n")
	s.WriteString(mutedStyle.Render("  Pick a display name and avatar — you can change this later\n\n"))
	s.WriteString("  Username:\n")
	s.WriteString("  " + m.usernameInput.View() + "\n\n")
	s.WriteString("  Avatar:\n")
	s.WriteString("  " + m.avatarInput.View() + "\n\n")

	if m.authErr != "" {
		s.WriteString(errorStyle.Render("  "+m.authErr) + "\n\n")
	}

	s.WriteString(helpStyle.Render("  Tab to switch fields • Enter to save & continue\n"))
	return s.String()
}

func (m *appModel) chatsView() string {
	var s strings.Builder

	username := ""
	if me := m.sess.User(); me != nil {
		username = me.Username
	}
	s.WriteString(titleStyle.Render("CHATLY — " + username))
	s.WriteString("\n")

	if m.panels.DualPane(m.width) {
		left := paneStyle.Width(m.width*2/5 - 2).Render(m.listPane())
		right := paneStyle.Width(m.detailWidth() - 2).Render(m.detailPane())
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else if m.panels.Active() == panel.Left {
		s.WriteString(m.listPane())
	} else {
		s.WriteString(m.detailPane())
	}

	s.WriteString("\n")
	if m.chatsErr != "" {
		s.WriteString(errorStyle.Render("  "+m.chatsErr) + "\n")
	}
	s.WriteString(helpStyle.Render("  ↑/↓ navigate • Enter open • Tab focus • Ctrl+F search • Ctrl+N group • Ctrl+P profile • Ctrl+V view • Ctrl+L logout"))
	return s.String()
}

func (m *appModel) listPane() string {
	var s strings.Builder
	me := m.sess.User()
	myID := ""
	if me != nil {
		myID = me.ID
	}

	s.WriteString(selectedStyle.Render("All Chats") + "\n\n")

	chats := m.chats.Chats()
	if len(chats) == 0 {
		s.WriteString(mutedStyle.Render("No chats yet\n\n"))
		s.WriteString("Suggested Users\n")
		for i, u := range m.chats.SuggestedUsers() {
			prefix := "  "
			style := lipgloss.NewStyle()
			if i == m.cursor && m.focus == focusList {
				prefix = "→ "
				style = selectedStyle
			}
			s.WriteString(style.Render(fmt.Sprintf("%s%s  %s", prefix, u.Username, mutedStyle.Render(u.Email))) + "\n")
		}
		return s.String()
	}

	selectedID := m.chats.SelectedID()
	for i, c := range chats {
		prefix := "  "
		style := lipgloss.NewStyle()
		if i == m.cursor && m.focus == focusList {
			prefix = "→ "
			style = selectedStyle
		} else if c.ID == selectedID {
			style = otherMessageStyle
		}

		icon := "💬"
		if c.IsGroup {
			icon = "👥"
		}

		preview := "No messages yet"
		if c.LatestMessage != nil {
			preview = c.LatestMessage.Content
			if len(preview) > 28 {
				preview = preview[:28] + "…"
			}
		}

		s.WriteString(style.Render(fmt.Sprintf("%s%s %s", prefix, icon, c.DisplayName(myID))) + "\n")
		s.WriteString(mutedStyle.Render("     "+preview) + "\n")
	}
	return s.String()
}

func (m *appModel) detailPane() string {
	var s strings.Builder
	sel := m.chats.Selected()

	if sel == nil {
		s.WriteString("\n")
		s.WriteString(mutedStyle.Render("  Select a chat to start messaging\n"))
		s.WriteString(mutedStyle.Render("  Your messages will appear here once you choose a conversation.\n"))
		return s.String()
	}

	me := m.sess.User()
	myID := ""
	if me != nil {
		myID = me.ID
	}

	s.WriteString(selectedStyle.Render(sel.DisplayName(myID)))
	if sel.IsGroup {
		s.WriteString(mutedStyle.Render("  (group)"))
		if sel.Description != "" {
			s.WriteString("\n" + mutedStyle.Render(sel.Description))
		}
	}
	s.WriteString("\n")
	s.WriteString(strings.Repeat("─", max(m.detailWidth()-4, 10)))
	s.WriteString("\n")
	s.WriteString(m.thread.View())
	s.WriteString("\n")

	if _, ok := m.typingPeers[sel.ID]; ok {
		s.WriteString(accentStyle.Render("typing…") + "\n")
	}

	s.WriteString(strings.Repeat("─", max(m.detailWidth()-4, 10)))
	s.WriteString("\n")
	s.WriteString(m.messageInput.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Enter to send • Esc to go back"))
	return s.String()
}

func (m *appModel) modalView() string {
	var s strings.Builder
	s.WriteString("\n")

	switch m.modals.Active() {
	case store.ModalSearch:
		s.WriteString(titleStyle.Render("Search Users") + "\n\n")
		s.WriteString("  " + m.searchInput.View() + "\n\n")
		if len(m.searchResults) == 0 {
			s.WriteString(mutedStyle.Render("  No users found\n"))
		}
		for i, u := range m.searchResults {
			prefix, style := "  ", lipgloss.NewStyle()
			if i == m.modalCursor {
				prefix, style = "→ ", selectedStyle
			}
			s.WriteString(style.Render(fmt.Sprintf("%s%s  %s", prefix, u.Username, mutedStyle.Render(u.Email))) + "\n")
		}
		s.WriteString("\n" + helpStyle.Render("  Enter search • ↑/↓ navigate • Ctrl+O open chat • Esc close"))

	case store.ModalGroupChat:
		s.WriteString(titleStyle.Render("Create Group Chat") + "\n\n")
		s.WriteString("  Group Name:\n  " + m.nameInput.View() + "\n\n")
		s.WriteString("  Search users to add:\n  " + m.searchInput.View() + "\n\n")
		if len(m.groupDraft) > 0 {
			names := make([]string, len(m.groupDraft))
			for i, u := range m.groupDraft {
				names[i] = u.Username
			}
			s.WriteString(accentStyle.Render("  Added: "+strings.Join(names, ", ")) + "\n\n")
		}
		for i, u := range m.searchResults {
			prefix, style := "  ", lipgloss.NewStyle()
			if i == m.modalCursor {
				prefix, style = "→ ", selectedStyle
			}
			mark := ""
			for _, d := range m.groupDraft {
				if d.ID == u.ID {
					mark = " ✓"
				}
			}
			s.WriteString(style.Render(prefix+u.Username+mark) + "\n")
		}
		s.WriteString("\n" + helpStyle.Render("  Tab fields • Enter search • Ctrl+T toggle member • Ctrl+S create • Esc cancel"))

	case store.ModalProfile:
		s.WriteString(titleStyle.Render("Your Profile") + "\n\n")
		s.WriteString("  Username:\n  " + m.usernameInput.View() + "\n\n")
		s.WriteString("  Bio:\n  " + m.bioInput.View() + "\n\n")
		s.WriteString("  Avatar:\n  " + m.avatarInput.View() + "\n\n")
		s.WriteString(helpStyle.Render("  Tab fields • Ctrl+S save • Esc close"))

	case store.ModalViewProfile:
		s.WriteString(titleStyle.Render("Profile") + "\n\n")
		if sel := m.chats.Selected(); sel != nil {
			if me := m.sess.User(); me != nil {
				if u := sel.OtherUser(me.ID); u != nil {
					s.WriteString("  " + selectedStyle.Render(u.Username) + "\n")
					s.WriteString(mutedStyle.Render("  "+u.Email) + "\n")
					if u.Bio != "" {
						s.WriteString("\n  " + u.Bio + "\n")
					}
				}
			}
		}
		s.WriteString("\n" + helpStyle.Render("  Esc close"))

	case store.ModalViewGroupProfile:
		s.WriteString(m.groupProfileView())
	}

	if m.modalErr != "" {
		s.WriteString("\n" + errorStyle.Render("  "+m.modalErr))
	}
	return s.String()
}

func (m *appModel) groupProfileView() string {
	var s strings.Builder
	sel := m.chats.Selected()
	if sel == nil {
		return ""
	}
	me := m.sess.User()
	isAdmin := me != nil && sel.IsAdmin(me.ID)

	switch m.modalMode {
	case modalModeEdit:
		s.WriteString(titleStyle.Render("Edit Group Details") + "\n\n")
		s.WriteString("  Group Name:\n  " + m.nameInput.View() + "\n\n")
		s.WriteString("  Group Description:\n  " + m.descInput.View() + "\n\n")
		s.WriteString(helpStyle.Render("  Tab fields • Ctrl+S save • Esc back"))

	case modalModeAdd:
		s.WriteString(titleStyle.Render("Add Members") + "\n\n")
		s.WriteString("  " + m.searchInput.View() + "\n\n")
		for i, u := range m.searchResults {
			prefix, style := "  ", lipgloss.NewStyle()
			if i == m.modalCursor {
				prefix, style = "→ ", selectedStyle
			}
			s.WriteString(style.Render(prefix+u.Username) + "\n")
		}
		s.WriteString("\n" + helpStyle.Render("  Enter search • Ctrl+T add • Esc back"))

	default:
		s.WriteString(titleStyle.Render(sel.Name) + "\n")
		if sel.Description != "" {
			s.WriteString(mutedStyle.Render("  "+sel.Description) + "\n")
		}
		s.WriteString("\n  Members:\n")
		for i, u := range sel.Users {
			prefix, style := "  ", lipgloss.NewStyle()
			if i == m.modalCursor {
				prefix, style = "→ ", selectedStyle
			}
			label := u.Username
			if sel.GroupAdmin != nil && u.ID == sel.GroupAdmin.ID {
				label += accentStyle.Render(" (Admin)")
			}
			s.WriteString(style.Render(prefix+label) + "\n")
		}
		s.WriteString("\n")
		if isAdmin {
			s.WriteString(helpStyle.Render("  ↑/↓ navigate • Ctrl+A add • Ctrl+X remove • Ctrl+E edit • Esc close"))
		} else {
			s.WriteString(helpStyle.Render("  Ctrl+Q leave group • Esc close"))
		}
	}
	return s.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// --- Main ---

func main() {
	cfg := config.Load()
	debug.Enabled = cfg.Debug
	debug.SetPath(session.GetConfigDir(cfg.Profile))

	p := tea.NewProgram(initialModel(cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
