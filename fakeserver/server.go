// Package fakeserver serves canned provider pages so searches can run without the real portal.
package fakeserver

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fenilmodi00/flight-deals-backend/fixtures"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const sessionCookie = "flightsfinder_session"

// Options tune the canned behaviour
type Options struct {
	// PendingPolls is how many "N" responses each session gets before results
	PendingPolls int
}

type family struct {
	name      string
	initial   string
	roundTrip string
	oneWay    string
}

type server struct {
	opts     Options
	mutex    sync.Mutex
	sessions int
	pending  map[string]int
}

// NewApp builds the fiber app with the skyscanner and kiwi portal routes
func NewApp(opts Options) *fiber.App {
	s := &server{opts: opts, pending: make(map[string]int)}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	sky := family{"skyscanner", fixtures.SkyscannerInitial, fixtures.SkyscannerRoundTrip, fixtures.SkyscannerOneWay}
	kiwi := family{"kiwi", fixtures.KiwiInitial, fixtures.KiwiRoundTrip, fixtures.KiwiOneWay}

	app.Get("/portal/sky", s.initialHandler(sky))
	app.Post("/portal/sky/poll", s.pollHandler(sky, true))
	app.Get("/portal/kiwi", s.initialHandler(kiwi))
	app.Post("/portal/kiwi/poll", s.pollHandler(kiwi, false))

	return app
}

func (s *server) newSession() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions++
	id := fmt.Sprintf("fake_session_token_%d", 12344+s.sessions)
	s.pending[id] = s.opts.PendingPolls
	return id
}

// takePending reports whether the session still owes a pending response
func (s *server) takePending(session string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.pending[session] > 0 {
		s.pending[session]--
		return true
	}
	return false
}

func setFakeCookies(c *fiber.Ctx, session string) {
	c.Cookie(&fiber.Cookie{Name: "CookieScriptConsent", Value: `{"action":"accept"}`, Path: "/"})
	c.Cookie(&fiber.Cookie{Name: sessionCookie, Value: session, Path: "/", HTTPOnly: true})
}

func (s *server) initialHandler(f family) fiber.Handler {
	return func(c *fiber.Ctx) error {
		html, err := fixtures.Read(f.initial)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		}

		session := s.newSession()
		setFakeCookies(c, session)

		logrus.WithFields(logrus.Fields{
			"component": "FakeServer",
			"family":    f.name,
			"session":   session,
		}).Debug("Served bootstrap page")

		c.Type("html", "utf-8")
		return c.SendString(html)
	}
}

func (s *server) pollHandler(f family, canBePending bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.FormValue("_token") == "" {
			return c.Status(fiber.StatusUnprocessableEntity).SendString("missing _token")
		}

		session := c.Cookies(sessionCookie)
		setFakeCookies(c, session)
		c.Type("txt", "utf-8")

		if canBePending && s.takePending(session) {
			return c.SendString(fixtures.PollBody(false, 120, `<div class="loading">Searching</div>`))
		}

		name := f.roundTrip
		if !strings.Contains(c.Get(fiber.HeaderReferer), "inbounddate") && c.Get(fiber.HeaderReferer) != "" {
			name = f.oneWay
		}
		html, err := fixtures.Read(name)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		}
		return c.SendString(fixtures.PollBody(true, 530, html))
	}
}
