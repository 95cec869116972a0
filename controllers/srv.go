// controllers/srv.go
package controllers

import (
	"context"
	"errors"
	"net/http"

	"unilib/app"
	"unilib/db"
	"unilib/lending"
	"unilib/session"

	"github.com/gin-gonic/gin"
)

type Srv struct {
	Repo   *db.Repo
	Tokens *session.TokenStore
	Guard  *lending.Guard
	Cfg    app.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:   db.NewRepo(a.DB),
		Tokens: a.Tokens(),
		Guard:  lending.NewGuard(),
		Cfg:    a.Config,
	}
}

// --- helpers ---

func userID(c *gin.Context) string {
	v, _ := c.Get("userID")
	id, _ := v.(string)
	return id
}

func role(c *gin.Context) string {
	v, _ := c.Get("role")
	r, _ := v.(string)
	return r
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, app.H{"success": true, "data": data})
}

// User-facing message text lives here, at the presentation boundary.
// Everything below it deals in lending.Kind tags only.
var kindMessages = map[lending.Kind]string{
	lending.QuotaExceeded:     "Limite d'emprunts atteinte",
	lending.AlreadyBorrowed:   "Livre déjà emprunté",
	lending.NoCopiesAvailable: "Aucune copie disponible",
	lending.NotFound:          "Ressource non trouvée",
	lending.RenewalCapReached: "Prolongations épuisées",
	lending.InvalidTransition: "Opération impossible dans cet état",
	lending.Unauthorized:      "Session expirée",
	lending.RequestInFlight:   "Requête déjà en cours",
	lending.Timeout:           "Délai de la requête dépassé",
}

var kindStatus = map[lending.Kind]int{
	lending.QuotaExceeded:     http.StatusConflict,
	lending.AlreadyBorrowed:   http.StatusConflict,
	lending.NoCopiesAvailable: http.StatusConflict,
	lending.NotFound:          http.StatusNotFound,
	lending.RenewalCapReached: http.StatusConflict,
	lending.InvalidTransition: http.StatusConflict,
	lending.Unauthorized:      http.StatusUnauthorized,
	lending.RequestInFlight:   http.StatusTooManyRequests,
	lending.Timeout:           http.StatusGatewayTimeout,
}

// fail renders any error: tagged lending errors get their mapped
// status/message, everything else is a 500 so transport failures are
// never dressed up as business-rule ones.
func fail(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = lending.ErrTimeout
	}
	if k := lending.KindOf(err); k != "" {
		c.JSON(kindStatus[k], app.H{"success": false, "code": string(k), "message": kindMessages[k]})
		return
	}
	c.JSON(http.StatusInternalServerError, app.H{"success": false, "code": "internal", "message": "Erreur interne du serveur"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, app.H{"success": false, "code": "bad_request", "message": msg})
}
