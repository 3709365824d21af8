// Package config resolves on-disk locations and per-profile settings.
//
// Each profile has a JSON settings file under the user config directory
// (client_id, client_secret, redirect_uri, sender_name, token_storage) and
// a token file under the user cache directory. Settings values may be
// overridden through GMAIL_* environment variables.
package config
