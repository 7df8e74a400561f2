package instagram

import (
	"strings"
	"time"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"
)

type apiResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	RequireLogin bool   `json:"require_login"`
	Data         struct {
		User *userInfo `json:"user"`
	} `json:"data"`
}

type count struct {
	Count int `json:"count"`
}

type userInfo struct {
	EdgeFelixVideoTimeline   count        `json:"edge_felix_video_timeline"`
	EdgeHighlightReels       count        `json:"edge_highlight_reels"`
	EdgeFollowedBy           count        `json:"edge_followed_by"`
	EdgeFollow               count        `json:"edge_follow"`
	EdgeOwnerToTimelineMedia timelineEdge `json:"edge_owner_to_timeline_media"`

	Username          string `json:"username"`
	FullName          string `json:"full_name"`
	ID                string `json:"id"`
	Biography         string `json:"biography"`
	ExternalURL       string `json:"external_url"`
	ProfilePicURL     string `json:"profile_pic_url"`
	ProfilePicURLHD   string `json:"profile_pic_url_hd"`
	CategoryName      string `json:"category_name"`
	BusinessEmail     string `json:"business_email"`
	BusinessPhone     string `json:"business_phone_number"`
	PublicEmail       string `json:"public_email"`
	PublicPhoneNumber string `json:"public_phone_number"`
	BioLinks          []struct {
		URL string `json:"url"`
	} `json:"bio_links"`
	HighlightReelCount int  `json:"highlight_reel_count"`
	IsPrivate          bool `json:"is_private"`
	IsVerified         bool `json:"is_verified"`
	IsBusinessAccount  bool `json:"is_business_account"`
}

type timelineEdge struct {
	Edges []struct {
		Node mediaNode `json:"node"`
	} `json:"edges"`
	Count int `json:"count"`
}

type mediaNode struct {
	Location *struct {
		Name string `json:"name"`
	} `json:"location"`
	VideoViewCount       *int   `json:"video_view_count"`
	Typename             string `json:"__typename"`
	Shortcode            string `json:"shortcode"`
	EdgeLikedBy          count  `json:"edge_liked_by"`
	EdgeMediaPreviewLike count  `json:"edge_media_preview_like"`
	EdgeMediaToComment   count  `json:"edge_media_to_comment"`
	EdgeMediaToCaption   struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	TakenAt int64 `json:"taken_at_timestamp"`
	IsVideo bool  `json:"is_video"`
}

type postResponse struct {
	Items []struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	} `json:"items"`
	GraphQL struct {
		ShortcodeMedia struct {
			Owner struct {
				Username string `json:"username"`
			} `json:"owner"`
		} `json:"shortcode_media"`
	} `json:"graphql"`
}

func (u *userInfo) toProfile() *profile.Profile {
	p := &profile.Profile{
		Username:      u.Username,
		FullName:      strings.TrimSpace(u.FullName),
		UserID:        u.ID,
		Biography:     u.Biography,
		ExternalURL:   u.ExternalURL,
		ProfilePicURL: u.ProfilePicURLHD,
		IsPrivate:     u.IsPrivate,
		IsVerified:    u.IsVerified,
		IsBusiness:    u.IsBusinessAccount,
		Followers:     u.EdgeFollowedBy.Count,
		Following:     u.EdgeFollow.Count,
		MediaCount:    u.EdgeOwnerToTimelineMedia.Count,
	}
	if p.ProfilePicURL == "" {
		p.ProfilePicURL = u.ProfilePicURL
	}
	for _, link := range u.BioLinks {
		if link.URL != "" {
			p.BioLinks = append(p.BioLinks, link.URL)
		}
	}

	highlights := u.EdgeHighlightReels.Count
	if highlights == 0 {
		highlights = u.HighlightReelCount
	}
	ext := &profile.ExtendedFields{
		Category:        u.CategoryName,
		BusinessEmail:   u.BusinessEmail,
		BusinessPhone:   u.BusinessPhone,
		PublicEmail:     u.PublicEmail,
		PublicPhone:     u.PublicPhoneNumber,
		ReelsCount:      u.EdgeFelixVideoTimeline.Count,
		HighlightsCount: highlights,
	}
	if !ext.IsEmpty() {
		p.Extended = ext
	}
	return p
}

func (n *mediaNode) toPost() profile.Post {
	post := profile.Post{
		Shortcode:  n.Shortcode,
		Type:       mediaType(n.Typename, n.IsVideo),
		Likes:      n.EdgeLikedBy.Count,
		Comments:   n.EdgeMediaToComment.Count,
		VideoViews: n.VideoViewCount,
	}
	if post.Likes == 0 {
		post.Likes = n.EdgeMediaPreviewLike.Count
	}
	if n.TakenAt > 0 {
		post.Timestamp = time.Unix(n.TakenAt, 0).Local()
	}
	if n.Location != nil {
		post.Location = n.Location.Name
	}
	if edges := n.EdgeMediaToCaption.Edges; len(edges) > 0 {
		post.Caption = edges[0].Node.Text
	}
	return post
}

func mediaType(typename string, isVideo bool) profile.MediaType {
	switch typename {
	case "GraphImage":
		return profile.MediaImage
	case "GraphVideo":
		return profile.MediaVideo
	case "GraphSidecar":
		return profile.MediaCarousel
	case "":
		if isVideo {
			return profile.MediaVideo
		}
		return profile.MediaImage
	default:
		return profile.MediaType(typename)
	}
}
