// Package tghtml builds message text that is safe to send to Telegram
// with ParseMode="HTML".
package tghtml
