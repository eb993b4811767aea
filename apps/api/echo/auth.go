package echoapi

import (
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	contextTokenKey   = "userToken"
	contextUserKey    = "user"
	contextSessionKey = "session"

	elevationHeader   = "X-Elevation-Token"
	elevationAudience = "elevation"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsFaculty    bool     `json:"is_faculty,omitempty"` // -> FACULTY PORTAL
	IsAdmin      bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	Roles        []string `json:"roles,omitempty"`
}

// ElevationClaims grant a user the right to change already saved records for a short while.
// Subject is the elevated user, GrantedBy the admin who vouched for them.
type ElevationClaims struct {
	jwt.StandardClaims
	GrantedBy string `json:"granted_by"`
}

type authenticator struct {
	conf      *core.Config
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config) *authenticator {
	return &authenticator{
		conf: conf,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

func (a *authenticator) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(a.jwtConfig)
}

func (a *authenticator) userClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			Audience:  a.conf.AppName,
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		IsFaculty:    usr.IsFaculty(),
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

func (a *authenticator) elevationClaims(usrID string, admin user.User) *ElevationClaims {
	now := time.Now()
	return &ElevationClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   usrID,
			Audience:  elevationAudience,
			ExpiresAt: now.Add(a.conf.Server.ElevationExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		GrantedBy: admin.ID,
	}
}

// generateToken generates a signed JWT token string representing claims.
func (a *authenticator) generateToken(claims jwt.Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// checkCredentials returns the active User identified by uname and pwd.
func (a *authenticator) checkCredentials(uname, pwd string, svc user.ServiceInterface) (user.User, error) {
	usr, err := svc.GetByUsernameOrEmail(uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	if !usr.Active() {
		return user.User{}, errAccountDeactivated
	}
	return usr, nil
}

func (a *authenticator) authenticate(uname, pwd string, svc user.ServiceInterface) (*Claims, error) {
	usr, err := a.checkCredentials(uname, pwd, svc)
	if err != nil {
		return nil, err
	}
	usr, err = svc.SetLastLogin(usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return a.userClaims(usr), nil
}

// elevate checks the credentials of an admin and returns an elevation token for usrID.
func (a *authenticator) elevate(usrID, adminUname, adminPwd string, svc user.ServiceInterface) (string, error) {
	admin, err := a.checkCredentials(adminUname, adminPwd, svc)
	if err != nil {
		return "", err
	}
	if !admin.IsAdmin() {
		return "", errElevationRefused
	}
	return a.generateToken(a.elevationClaims(usrID, admin))
}

// elevated reports whether token is a valid elevation token for usrID.
func (a *authenticator) elevated(token, usrID string) bool {
	if token == "" {
		return false
	}
	claims := new(ElevationClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != a.jwtConfig.SigningMethod {
			return nil, errors.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return a.jwtConfig.SigningKey, nil
	})
	if err != nil || !parsed.Valid {
		return false
	}
	return claims.Subject == usrID && claims.VerifyAudience(elevationAudience, true)
}

func (a *authenticator) refreshToken(ctx echo.Context, svc user.ServiceInterface) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.Active() {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	return a.generateToken(a.userClaims(usr, claims.OrigIssuedAt))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc user.ServiceInterface, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// getSession returns the core.Session built by sessionMiddleware; anonymous when missing.
func getSession(ctx echo.Context) core.Session {
	sess, _ := ctx.Get(contextSessionKey).(core.Session)
	return sess
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) {
				if match := claims.Roles[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}
