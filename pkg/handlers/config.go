package handlers

import (
	"crypto/sha1"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aotearoait/tidewatch/pkg/boat"
	"github.com/aotearoait/tidewatch/pkg/data"
	"github.com/aotearoait/tidewatch/pkg/metrics"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"
)

const (
	sessionName = "tidewatch"
	userID      = "userid"
	// See https://developer.chrome.com/blog/cookie-max-age-expires.
	defaultMaxAge = 60 * 60 * 24 * 400 // 400 days in seconds.
)

var store = &sessions.CookieStore{
	Codecs: securecookie.CodecsFromPairs(
		getSessionKey(),
		getEncryptionKey(),
	),
	Options: &sessions.Options{
		Path:     "/",
		MaxAge:   defaultMaxAge,
		Secure:   true,
		HttpOnly: true,
	},
}

func init() {
	store.MaxAge(defaultMaxAge)
}

// makeConfigMargins reads and writes per-user launch margins. GET returns the
// stored margins; POST accepts form values lead_hours and lag_hours.
func makeConfigMargins(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, "margin configuration is not enabled")
			return
		}

		session, _ := store.Get(r, sessionName)
		metrics.ObserveUserRequest(session.Values[userID])

		if r.Method == http.MethodGet {
			session.Save(r, w)
			user, _ := userFromSession(session, db)
			writeJSON(w, map[string]interface{}{
				"lead_hours": valueOrNil(user.LeadHours),
				"lag_hours":  valueOrNil(user.LagHours),
				"name":       user.Name,
			})
			return
		}
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if err := r.ParseForm(); err != nil {
			msg := fmt.Sprintf("Failed to parse form: %v", err)
			log.Println(msg)
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintln(w, msg)
			return
		}

		var user data.User
		if id, ok := session.Values[userID].(uint); ok {
			// Read-modify-write if the user provided an ID. Otherwise one
			// will be generated with db.Save.
			db.First(&user, id)
		}
		if f, err := strconv.ParseFloat(r.PostForm.Get("lead_hours"), 64); err == nil {
			user.LeadHours = &f
		} else {
			user.LeadHours = nil
		}
		if f, err := strconv.ParseFloat(r.PostForm.Get("lag_hours"), 64); err == nil {
			user.LagHours = &f
		} else {
			user.LagHours = nil
		}
		if name := r.PostForm.Get("name"); name != "" {
			user.Name = name
		}

		user.LastSeen = time.Now()
		if tx := db.Save(&user); tx.Error != nil {
			msg := fmt.Sprintf("Failed to save margins: %v", tx.Error)
			log.Println(msg)
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintln(w, msg)
			return
		}
		session.Values[userID] = user.ID
		session.Save(r, w)

		writeJSON(w, map[string]interface{}{
			"lead_hours": valueOrNil(user.LeadHours),
			"lag_hours":  valueOrNil(user.LagHours),
			"name":       user.Name,
		})
	}
}

// optionsFromSession derives window margins from the requesting user's
// stored preferences. ok is false when there is nothing stored.
func optionsFromSession(r *http.Request, db *gorm.DB) (boat.Options, bool) {
	if db == nil {
		return boat.Options{}, false
	}
	session, _ := store.Get(r, sessionName)
	user, found := userFromSession(session, db)
	if !found || (user.LeadHours == nil && user.LagHours == nil) {
		return boat.Options{}, false
	}

	var opts boat.Options
	if user.LeadHours != nil {
		opts.Before = time.Duration(*user.LeadHours * float64(time.Hour))
	}
	if user.LagHours != nil {
		opts.After = time.Duration(*user.LagHours * float64(time.Hour))
	}
	return opts, true
}

func userFromSession(s *sessions.Session, db *gorm.DB) (data.User, bool) {
	var user data.User
	id, ok := s.Values[userID].(uint)
	if !ok {
		return user, false
	}
	if r := db.First(&user, id); r.Error != nil {
		log.Printf("Failed to find user %v: %v", id, r.Error)
		return user, false
	}
	if !user.LastSeen.IsZero() {
		log.Printf("User %d (%q) was last seen %s ago", id, user.Name, time.Since(user.LastSeen))
	}
	user.LastSeen = time.Now()
	db.Save(&user)
	return user, true
}

func valueOrNil(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// getSessionKey returns a key to authenticate session cookies defined in the
// environment. If it is not set, it uses a compile-time default.
func getSessionKey() []byte {
	defaultKey := []byte("deadbeef")
	if key := os.Getenv("SESSION_KEY"); key != "" {
		return []byte(key)
	}
	return defaultKey
}

func getEncryptionKey() []byte {
	password := "deadbeef"
	if fromEnv := os.Getenv("ENCRYPTION_KEY"); fromEnv != "" {
		password = fromEnv
	}
	return pbkdf2.Key([]byte(password), []byte{}, 4096, 32, sha1.New)
}
