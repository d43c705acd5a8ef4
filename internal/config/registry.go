package config

import "trendingreads/internal/domain"

func rss(name, url string, cat domain.Category) domain.FeedSource {
	return domain.FeedSource{Name: name, URL: url, Category: cat, Type: domain.SourceTypeRSS}
}

func reddit(name, url string, cat domain.Category) domain.FeedSource {
	return domain.FeedSource{Name: name, URL: url, Category: cat, Type: domain.SourceTypeReddit}
}

// defaultSources - реестр источников по умолчанию.
func defaultSources() []domain.FeedSource {
	const (
		philosophy    = domain.CategoryPhilosophy
		entertainment = domain.CategoryEntertainment
		technology    = domain.CategoryTechnology
		science       = domain.CategoryScience
	)
	return []domain.FeedSource{
		rss("Aeon", "https://aeon.co/feed.rss", philosophy),
		rss("The Marginalian", "https://www.themarginalian.org/feed/", philosophy),
		rss("Daily Nous", "https://dailynous.com/feed/", philosophy),
		rss("Stanford Encyclopedia", "https://plato.stanford.edu/rss/sep.xml", philosophy),
		rss("r/philosophy", "https://www.reddit.com/r/philosophy/top/.rss?t=week", philosophy),

		rss("Longreads", "https://longreads.com/feed/", entertainment),
		rss("The Atlantic - Culture", "https://www.theatlantic.com/feed/channel/entertainment/", entertainment),
		rss("Literary Hub", "https://lithub.com/feed/", entertainment),
		rss("r/TrueFilm", "https://www.reddit.com/r/TrueFilm/top/.rss?t=week", entertainment),

		rss("Ars Technica", "https://feeds.arstechnica.com/arstechnica/index", technology),
		rss("Wired", "https://www.wired.com/feed/rss", technology),
		rss("MIT Technology Review", "https://www.technologyreview.com/feed/", technology),
		rss("r/programming", "https://www.reddit.com/r/programming/top/.rss?t=week", technology),

		rss("Quanta Magazine", "https://api.quantamagazine.org/feed/", science),
		rss("Nature News", "https://www.nature.com/nature.rss", science),
		rss("Science Daily", "https://www.sciencedaily.com/rss/all.xml", science),
		rss("r/science", "https://www.reddit.com/r/science/top/.rss?t=week", science),

		reddit("r/PhilosophyofScience", "https://www.reddit.com/r/PhilosophyofScience/top.json?t=week&limit=10", philosophy),
		reddit("r/books", "https://www.reddit.com/r/books/top.json?t=week&limit=10", entertainment),
		reddit("r/technology", "https://www.reddit.com/r/technology/top.json?t=week&limit=15", technology),
		reddit("r/EverythingScience", "https://www.reddit.com/r/EverythingScience/top.json?t=week&limit=10", science),
	}
}

func defaultHackerNews() HackerNewsConfig {
	return HackerNewsConfig{
		Enabled:       true,
		Endpoint:      "https://hn.algolia.com/api/v1/search",
		HitsPerPage:   15,
		MinPoints:     10,
		RatePerSecond: 2,
		Terms: map[domain.Category][]string{
			domain.CategoryPhilosophy:    {"philosophy", "ethics", "stoicism"},
			domain.CategoryEntertainment: {"film essay", "book review", "culture"},
			domain.CategoryTechnology:    {"programming", "software engineering", "AI"},
			domain.CategoryScience:       {"science", "physics", "neuroscience"},
		},
	}
}
