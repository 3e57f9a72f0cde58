// Package picuki reads public profile data from the Picuki viewer site.
//
// Client performs paced page requests, HTMLParser extracts profiles, feed
// pages and post details with goquery, and Source combines the two into
// the three resolution steps of a profile download:
//
//	source := picuki.NewSource(client, picuki.NewHTMLParser(base), picuki.NewEndpoints(base), log)
//	profile, handle, err := source.ResolveProfile(ctx, "alice")
//	ids, err := source.Enumerate(ctx, handle, nil)
//	record, err := source.ResolveMedia(ctx, ids[0])
package picuki
