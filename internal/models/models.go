// This file defines the backend records the console manages. The backend
// owns all of them; the console only ever holds transient copies.

package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Page is one server-side page of a list endpoint.
type Page[T any] struct {
	Docs      []T `json:"docs"`
	TotalDocs int `json:"totalDocs"`
}

// Ref is a reference to another record. The backend sends either the bare
// id or the populated object, depending on the endpoint.
type Ref struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Title string `json:"title,omitempty"`
}

// UnmarshalJSON accepts both `"id"` and `{"_id": "id", ...}`.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// Label is the human-readable side of a reference.
func (r Ref) Label() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.Title != "":
		return r.Title
	}
	return r.ID
}

// Admin is the logged-in operator, kept alongside the session token.
type Admin struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// LoginResult is the data part of a successful admin login.
type LoginResult struct {
	Token string `json:"token"`
	Admin Admin  `json:"admin"`
}

type User struct {
	ID           string    `json:"_id"`
	UniqueID     string    `json:"uniqueId,omitempty"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile,omitempty"`
	MobilePrefix string    `json:"mobilePrefix,omitempty"`
	MobileNumber string    `json:"mobileNumber,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	Image        string    `json:"image,omitempty"`
	Coins        float64   `json:"coins"`
	IsBlocked    bool      `json:"isBlocked"`
	LoginType    string    `json:"loginType,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// Phone returns the mobile number with its prefix, falling back to the
// single mobile field.
func (u User) Phone() string {
	if u.MobileNumber != "" {
		return strings.TrimSpace(u.MobilePrefix + " " + u.MobileNumber)
	}
	return u.Mobile
}

type Category struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Image        string `json:"image,omitempty"`
	TotalStories int    `json:"totalStories"`
}

type Story struct {
	ID             string  `json:"_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Category       Ref     `json:"category"`
	Language       Ref     `json:"language"`
	Rating         float64 `json:"rating"`
	IsLocked       bool    `json:"isLocked"`
	IsCompleted    bool    `json:"isCompleted"`
	StoryCoinPrice float64 `json:"storyCoinPrice"`
	CoverImage     string  `json:"coverImage,omitempty"`
	BannerImage    string  `json:"bannerImage,omitempty"`
	TotalEpisodes  int     `json:"totalEpisodes"`
	TotalViews     int     `json:"totalViews"`
}

const (
	EpisodeTypeEpisode = "episode"
	EpisodeTypeTrailer = "trailer"
)

type Episode struct {
	ID            string  `json:"_id"`
	StoryID       Ref     `json:"storyId"`
	EpisodeNumber int     `json:"episodeNumber"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Type          string  `json:"type"`
	IsFree        bool    `json:"isFree"`
	Coin          float64 `json:"coin"`
	Thumbnail     string  `json:"thumbnail,omitempty"`
	Video         string  `json:"video,omitempty"`
	VideoURL      string  `json:"videoUrl,omitempty"`
}

// StoryDetail is a story with all of its episodes, as returned by the
// story detail endpoint.
type StoryDetail struct {
	Story
	Episodes []Episode `json:"episodes"`
}

// NextEpisodeNumber is one past the highest episode number of the story.
func (d StoryDetail) NextEpisodeNumber() int {
	highest := 0
	for _, e := range d.Episodes {
		if e.EpisodeNumber > highest {
			highest = e.EpisodeNumber
		}
	}
	return highest + 1
}

type Language struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

type CoinPlan struct {
	ID         string  `json:"_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	OfferPrice float64 `json:"offerPrice"`
	Coin       float64 `json:"coin"`
	BonusCoin  float64 `json:"bonusCoin"`
	IsActive   bool    `json:"isActive"`
}

type VipPlan struct {
	ID           string  `json:"_id"`
	Name         string  `json:"name"`
	Validity     int     `json:"validity"`
	ValidityType string  `json:"validityType"`
	Price        float64 `json:"price"`
	OfferPrice   float64 `json:"offerPrice"`
	Coins        float64 `json:"coins"`
	Tags         string  `json:"tags,omitempty"`
	IsActive     bool    `json:"isActive"`
}

type AdReward struct {
	ID                string  `json:"_id"`
	AdLabel           string  `json:"adLabel"`
	AdDisplayInterval float64 `json:"adDisplayInterval"`
	CoinEarnedFromAd  float64 `json:"coinEarnedFromAd"`
}

// MaxDailyRewards is the number of days in a daily-reward cycle.
const MaxDailyRewards = 7

type DailyReward struct {
	ID              string    `json:"_id"`
	Day             int       `json:"day"`
	DailyRewardCoin float64   `json:"dailyRewardCoin"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
}

type ReportReason struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

type Report struct {
	ID          string    `json:"_id"`
	User        Ref       `json:"userId"`
	Story       Ref       `json:"storyId"`
	Episode     Ref       `json:"episodeId"`
	Reason      Ref       `json:"reasonId"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Settings is the platform-wide singleton configuration record.
type Settings struct {
	ID                 string  `json:"_id"`
	AppName            string  `json:"appName"`
	AppLogo            string  `json:"appLogo,omitempty"`
	AppDescription     string  `json:"appDescription"`
	SupportEmail       string  `json:"supportEmail"`
	Facebook           string  `json:"facebook"`
	Instagram          string  `json:"instagram"`
	YouTube            string  `json:"youtube"`
	Twitter            string  `json:"twitter"`
	AndroidVersion     string  `json:"androidVersion"`
	IOSVersion         string  `json:"iosVersion"`
	IsForceUpdate      bool    `json:"isForceUpdate"`
	IsMaintenanceMode  bool    `json:"isMaintenanceMode"`
	WelcomeBonus       float64 `json:"welcomeBonus"`
	AdDisplayInterval  float64 `json:"adDisplayInterval"`
	PrivacyPolicy      string  `json:"privacyPolicy"`
	TermsAndConditions string  `json:"termsAndConditions"`
}
