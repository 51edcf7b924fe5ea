package pipeline

import (
	"sort"
	"sync"
	"time"
)

type (
	// SitemapEntry one page url with its language alternates
	SitemapEntry struct {
		URL          string
		LastModified time.Time
		Alternates   map[string]string
		Images       []string
	}
	// Sitemap collects sitemap entries per language
	Sitemap struct {
		lock    sync.Mutex
		entries map[string][]SitemapEntry
	}
	// FeedItem one page published to a feed channel
	FeedItem struct {
		Channel     string
		Title       string
		URL         string
		Description string
		Published   time.Time
	}
	// Feed collects feed items per language and channel
	Feed struct {
		lock  sync.Mutex
		items map[string][]FeedItem
	}
)

func NewSitemap() *Sitemap {
	return &Sitemap{entries: map[string][]SitemapEntry{}}
}

func (s *Sitemap) Add(language string, entry SitemapEntry) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.entries[language] = append(s.entries[language], entry)
}

// Entries returns the entries of language sorted by url
func (s *Sitemap) Entries(language string) []SitemapEntry {
	s.lock.Lock()
	defer s.lock.Unlock()
	entries := append([]SitemapEntry(nil), s.entries[language]...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].URL < entries[j].URL
	})
	return entries
}

func NewFeed() *Feed {
	return &Feed{items: map[string][]FeedItem{}}
}

func (f *Feed) Add(language string, item FeedItem) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.items[language] = append(f.items[language], item)
}

// Items returns the channel items of language, newest first
func (f *Feed) Items(language, channel string) []FeedItem {
	f.lock.Lock()
	defer f.lock.Unlock()
	var items []FeedItem
	for _, item := range f.items[language] {
		if item.Channel == channel {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Published.Equal(items[j].Published) {
			return items[i].Published.After(items[j].Published)
		}
		return items[i].URL < items[j].URL
	})
	return items
}
