// Package educabiz is a client for the gallery and export surface of an
// Educabiz child-care portal deployment.
//
// A run goes through three protocol interactions, each with its own type:
//
//	client, _ := educabiz.NewClient("https://happykids.educabiz.com", time.Minute)
//
//	session, err := educabiz.NewAuthenticator(client, nil).Authenticate(ctx, user, pass)
//
//	scanner := educabiz.NewGalleryScanner(client, educabiz.ScanExhaustive, ratelimit.PerMinute(60))
//	ids, err := scanner.Scan(ctx, childID, since, session)
//
//	driver := educabiz.NewExportJobDriver(client, educabiz.DefaultPollConfig())
//	handle, err := driver.Submit(ctx, session, ids)
//	location, err := driver.AwaitCompletion(ctx, session, handle, progressBar)
//
// The Session value returned by Authenticate is immutable and is passed to
// every later call. Login material is extracted from cookies and HTML through
// the SessionExtractor interface.
package educabiz
