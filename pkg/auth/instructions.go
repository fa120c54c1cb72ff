package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCredentialGuide explains the ways to supply portal credentials
func ShowCredentialGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "🔐 EDUCABIZ CREDENTIALS")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "ebexport logs in with the same email and password you use on")
	fmt.Fprintln(w, "https://<school>.educabiz.com. Provide them in one of these ways:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Save them once (keychain, or an encrypted file as fallback):")
	fmt.Fprintln(w, "       ebexport auth login --slug <school>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  2. Export environment variables or put them in a .env file:")
	fmt.Fprintln(w, "       EDUCABIZ_SLUG=<school>")
	fmt.Fprintln(w, "       EDUCABIZ_USERNAME=<email>")
	fmt.Fprintln(w, "       EDUCABIZ_PASSWORD=<password>")
	fmt.Fprintln(w, "       EDUCABIZ_CHILD_ID=<child id>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The child id is the number in the gallery URL of your child's page.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
