package middleware

import (
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/tavern/internal/domain"
)

const (
	// SessionName is the cookie session holding the participant identity.
	SessionName = "tavern-session"
	// UserContextKey is where Identity stores the participant on the echo context.
	UserContextKey = "user"

	sessionUID         = "uid"
	sessionDisplayName = "displayName"
	sessionPhotoURL    = "photoURL"
)

// SaveIdentity writes user into the session cookie.
func SaveIdentity(c echo.Context, user domain.User) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Values[sessionUID] = user.UID
	sess.Values[sessionDisplayName] = user.DisplayName
	sess.Values[sessionPhotoURL] = user.PhotoURL
	return sess.Save(c.Request(), c.Response())
}

// ClearIdentity expires the session cookie.
func ClearIdentity(c echo.Context) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// LoadIdentity reads the participant from the session, if any.
func LoadIdentity(c echo.Context) (domain.User, bool) {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return domain.User{}, false
	}
	uid, _ := sess.Values[sessionUID].(string)
	if uid == "" {
		return domain.User{}, false
	}
	name, _ := sess.Values[sessionDisplayName].(string)
	photo, _ := sess.Values[sessionPhotoURL].(string)
	return domain.User{UID: uid, DisplayName: name, PhotoURL: photo}, true
}

// Identity rejects requests without a session identity and makes the
// participant available through UserFromContext.
func Identity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := LoadIdentity(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "no session; POST /table/session first")
		}
		c.Set(UserContextKey, user)

		ctx := c.Request().Context()
		logger := FromContext(ctx).With("uid", user.UID)
		c.SetRequest(c.Request().WithContext(WithLogger(ctx, logger)))
		return next(c)
	}
}

// UserFromContext returns the participant stored by Identity.
func UserFromContext(c echo.Context) (domain.User, bool) {
	user, ok := c.Get(UserContextKey).(domain.User)
	return user, ok
}
