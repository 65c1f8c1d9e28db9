package email

import "html/template"

var inviteTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Helvetica, Arial, sans-serif; color: #1a1a1a;">
    <h2>Welcome to ChargeHub</h2>
    <p>An account has been prepared for you. Follow the link below to choose
    a password and finish your registration. The link is valid for 14 days.</p>
    <p><a href="{{.Link}}" style="background:#16a34a;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none;">Complete registration</a></p>
    <p>If the button does not work, copy this address into your browser:<br>{{.Link}}</p>
  </body>
</html>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Helvetica, Arial, sans-serif; color: #1a1a1a;">
    <h2>Password reset</h2>
    <p>Somebody requested a password reset for your ChargeHub account. The
    link below is valid for one hour. If this was not you, ignore this mail.</p>
    <p><a href="{{.Link}}" style="background:#2563eb;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none;">Choose a new password</a></p>
    <p>If the button does not work, copy this address into your browser:<br>{{.Link}}</p>
  </body>
</html>`))
